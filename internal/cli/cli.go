package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"decisionflow/internal/a2a"
	"decisionflow/pkg/auth"
)

// scenario is one canned request used to exercise the decision flow.
type scenario struct {
	Name          string
	Message       string
	ExpectedRoute string
}

var scenarios = []scenario{
	{"Info Required Scenario", "I want to plan my trip", "Get Info Agent"},
	{"Planning Scenario", "Plan a trip to Paris from May 10 to May 15 with a $2000 budget", "Create Plan Agent"},
	{"Task Execution Scenario", "Book a flight to New York for tomorrow at 9 AM", "Task Executor Agent"},
	{"No Action Scenario", "Hello", "No Action Agent"},
	{"Calculation Task", "Calculate the square root of 144", "Task Executor Agent"},
	{"Complex Planning", "Create a weekly meal plan for a family of four with dietary restrictions", "Create Plan Agent"},
}

// NewRootCmd builds the dfctl command tree.
func NewRootCmd() *cobra.Command {
	var (
		agentURL string
		token    string
		timeout  time.Duration
	)

	rootCmd := &cobra.Command{
		Use:           "dfctl",
		Short:         "Decision flow agent client",
		Long:          "Talks to decision flow agents over the agent-to-agent JSON-RPC protocol: send messages, stream responses, inspect tasks and run the demo scenarios.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&agentURL, "url", "http://localhost:10000", "Base URL of the agent to talk to")
	rootCmd.PersistentFlags().StringVar(&token, "token", "", "Bearer token sent with every request")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 3*time.Minute, "Per-request timeout")

	newClient := func() *a2a.Client {
		opts := []a2a.ClientOption{}
		if token != "" {
			opts = append(opts, a2a.WithAuthToken(token))
		}
		return a2a.NewClient(agentURL, opts...)
	}
	newCtx := func() (context.Context, context.CancelFunc) {
		return context.WithTimeout(context.Background(), timeout)
	}

	rootCmd.AddCommand(
		newCardCmd(newClient, newCtx),
		newSendCmd(newClient, newCtx),
		newTaskCmd(newClient, newCtx),
		newScenariosCmd(newClient, newCtx),
		newChatCmd(newClient, newCtx),
		newTokenCmd(),
	)
	return rootCmd
}

type clientFactory func() *a2a.Client
type ctxFactory func() (context.Context, context.CancelFunc)

func newCardCmd(newClient clientFactory, newCtx ctxFactory) *cobra.Command {
	return &cobra.Command{
		Use:   "card",
		Short: "Fetch and print the agent card",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := newCtx()
			defer cancel()

			card, err := newClient().ResolveCard(ctx)
			if err != nil {
				return err
			}
			out, err := json.MarshalIndent(card, "", "  ")
			if err != nil {
				return err
			}
			cmd.Println(string(out))
			return nil
		},
	}
}

func newSendCmd(newClient clientFactory, newCtx ctxFactory) *cobra.Command {
	var (
		stream    bool
		blocking  bool
		history   int
		taskID    string
		contextID string
	)
	cmd := &cobra.Command{
		Use:   "send <message>",
		Short: "Send a message to the agent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := newCtx()
			defer cancel()

			msg := a2a.NewUserTextMessage(args[0])
			msg.TaskID = taskID
			msg.ContextID = contextID
			params := a2a.MessageSendParams{
				Message: msg,
				Configuration: &a2a.MessageSendConfiguration{
					AcceptedOutputModes: []string{"text"},
					Blocking:            blocking,
				},
			}
			if history >= 0 {
				params.Configuration.HistoryLength = &history
			}

			if stream {
				return streamAndPrint(ctx, cmd, newClient(), params)
			}

			result, err := newClient().SendMessage(ctx, params)
			if err != nil {
				return err
			}
			printSendResult(cmd, result)
			return nil
		},
	}
	cmd.Flags().BoolVar(&stream, "stream", false, "Use message/stream and print events as they arrive")
	cmd.Flags().BoolVar(&blocking, "blocking", true, "Wait for the task to settle before returning")
	cmd.Flags().IntVar(&history, "history", -1, "Limit the history returned with the task (-1 for all)")
	cmd.Flags().StringVar(&taskID, "task", "", "Continue an existing task")
	cmd.Flags().StringVar(&contextID, "context", "", "Bind the message to a context")
	return cmd
}

func newTaskCmd(newClient clientFactory, newCtx ctxFactory) *cobra.Command {
	taskCmd := &cobra.Command{
		Use:   "task",
		Short: "Inspect and cancel tasks",
	}

	var history int
	getCmd := &cobra.Command{
		Use:   "get <task-id>",
		Short: "Fetch a task by id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := newCtx()
			defer cancel()

			params := a2a.TaskQueryParams{ID: args[0]}
			if history >= 0 {
				params.HistoryLength = &history
			}
			task, err := newClient().GetTask(ctx, params)
			if err != nil {
				return err
			}
			printTask(cmd, task)
			return nil
		},
	}
	getCmd.Flags().IntVar(&history, "history", -1, "Limit the returned history (-1 for all)")

	cancelCmd := &cobra.Command{
		Use:   "cancel <task-id>",
		Short: "Cancel a running task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := newCtx()
			defer cancel()

			task, err := newClient().CancelTask(ctx, a2a.TaskIDParams{ID: args[0]})
			if err != nil {
				return err
			}
			cmd.Printf("Task %s is now %s\n", task.ID, task.Status.State)
			return nil
		},
	}

	taskCmd.AddCommand(getCmd, cancelCmd)
	return taskCmd
}

func newScenariosCmd(newClient clientFactory, newCtx ctxFactory) *cobra.Command {
	return &cobra.Command{
		Use:   "scenarios",
		Short: "Run the demo scenarios against the router",
		RunE: func(cmd *cobra.Command, _ []string) error {
			client := newClient()
			for i, sc := range scenarios {
				cmd.Printf("--- Scenario %d: %s\n", i+1, sc.Name)
				cmd.Printf("    Message:  %s\n", sc.Message)
				cmd.Printf("    Expected: %s\n", sc.ExpectedRoute)

				ctx, cancel := newCtx()
				result, err := client.SendMessage(ctx, a2a.MessageSendParams{
					Message:       a2a.NewUserTextMessage(sc.Message),
					Configuration: &a2a.MessageSendConfiguration{Blocking: true},
				})
				cancel()
				if err != nil {
					cmd.Printf("    Error:    %v\n\n", err)
					continue
				}
				cmd.Printf("    Response: %s\n\n", firstLine(result.Text()))
			}
			return nil
		},
	}
}

func newChatCmd(newClient clientFactory, newCtx ctxFactory) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Interactive conversation with the agent",
		RunE: func(cmd *cobra.Command, _ []string) error {
			client := newClient()
			scanner := bufio.NewScanner(os.Stdin)
			var taskID, contextID string

			cmd.Println("Type a message, or 'quit' to exit.")
			for {
				cmd.Print("> ")
				if !scanner.Scan() {
					return scanner.Err()
				}
				line := strings.TrimSpace(scanner.Text())
				if line == "" {
					continue
				}
				if line == "quit" || line == "exit" {
					return nil
				}

				msg := a2a.NewUserTextMessage(line)
				msg.TaskID = taskID
				msg.ContextID = contextID

				ctx, cancel := newCtx()
				result, err := client.SendMessage(ctx, a2a.MessageSendParams{
					Message:       msg,
					Configuration: &a2a.MessageSendConfiguration{Blocking: true},
				})
				cancel()
				if err != nil {
					cmd.Printf("error: %v\n", err)
					taskID, contextID = "", ""
					continue
				}

				cmd.Println(result.Text())
				// Stay on the same task while the agent still needs input.
				if task := result.Task; task != nil && task.Status.State == a2a.TaskStateInputRequired {
					taskID, contextID = task.ID, task.ContextID
				} else {
					taskID, contextID = "", ""
				}
			}
		},
	}
}

func newTokenCmd() *cobra.Command {
	var (
		secret   string
		issuer   string
		clientID string
		scopes   []string
		ttl      time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token for authenticated agents",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if secret == "" {
				return fmt.Errorf("--secret is required")
			}
			token, err := auth.NewJWTService(secret, issuer, ttl).GenerateToken(clientID, scopes)
			if err != nil {
				return err
			}
			cmd.Println(token)
			return nil
		},
	}
	cmd.Flags().StringVar(&secret, "secret", "", "Shared JWT secret of the agents")
	cmd.Flags().StringVar(&issuer, "issuer", "decisionflow", "Token issuer")
	cmd.Flags().StringVar(&clientID, "client", "dfctl", "Client identifier embedded in the token")
	cmd.Flags().StringSliceVar(&scopes, "scope", []string{"messages:send"}, "Scopes granted to the token")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "Token lifetime")
	return cmd
}

func streamAndPrint(ctx context.Context, cmd *cobra.Command, client *a2a.Client, params a2a.MessageSendParams) error {
	return client.StreamMessage(ctx, params, func(ev a2a.StreamEvent) error {
		switch {
		case ev.Task != nil:
			cmd.Printf("[task %s] %s\n", ev.Task.ID, ev.Task.Status.State)
		case ev.Message != nil:
			cmd.Println(ev.Message.Text())
		case ev.Status != nil:
			line := fmt.Sprintf("[status] %s", ev.Status.Status.State)
			if ev.Status.Final {
				line += " (final)"
			}
			cmd.Println(line)
		case ev.Artifact != nil:
			cmd.Printf("[artifact] %s\n", ev.Artifact.Artifact.Name)
		}
		return nil
	})
}

func printSendResult(cmd *cobra.Command, result *a2a.SendResult) {
	cmd.Println(result.Text())
	if task := result.Task; task != nil {
		cmd.Printf("\n[task %s: %s%s]\n", task.ID, task.Status.State, statusAge(task))
	}
}

func printTask(cmd *cobra.Command, task *a2a.Task) {
	cmd.Printf("Task:    %s\n", task.ID)
	cmd.Printf("Context: %s\n", task.ContextID)
	cmd.Printf("State:   %s%s\n", task.Status.State, statusAge(task))
	if task.Status.Message != nil {
		cmd.Printf("Message: %s\n", firstLine(task.Status.Message.Text()))
	}
	if len(task.Artifacts) > 0 {
		cmd.Println("Artifacts:")
		for _, a := range task.Artifacts {
			cmd.Printf("  - %s\n", a.Name)
		}
	}
	if len(task.History) > 0 {
		cmd.Println("History:")
		for _, m := range task.History {
			cmd.Printf("  [%s] %s\n", m.Role, firstLine(m.Text()))
		}
	}
}

// statusAge renders the status timestamp as a relative time, if present.
func statusAge(task *a2a.Task) string {
	if task.Status.Timestamp == "" {
		return ""
	}
	ts, err := time.Parse(time.RFC3339, task.Status.Timestamp)
	if err != nil {
		return ""
	}
	return ", " + humanize.Time(ts)
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i] + " ..."
	}
	return s
}
