package agents

import (
	"decisionflow/internal/a2a"
	"decisionflow/internal/adapters/config"
)

var defaultProvider = &a2a.AgentProvider{
	Organization: "Decision Flow Systems",
	URL:          "https://github.com/decision-flow-agent",
}

var textModes = []string{"text", "text/plain"}

// Card builds the agent card for a role served at baseURL.
func Card(role, baseURL, version string) a2a.AgentCard {
	card := a2a.AgentCard{
		URL:      baseURL + "/",
		Provider: defaultProvider,
		Version:  version,
		Capabilities: a2a.AgentCapabilities{
			Streaming:              true,
			PushNotifications:      false,
			StateTransitionHistory: true,
		},
		DefaultInputModes:  textModes,
		DefaultOutputModes: textModes,
	}

	switch role {
	case config.RoleRouter:
		card.Name = "Router Agent"
		card.Description = "Entry point of the decision flow system. Classifies every request and dispatches it to the specialist agent best suited to handle it."
		card.Skills = []a2a.AgentSkill{{
			ID:          "request_routing",
			Name:        "Request Routing",
			Description: "Analyzes user intent and routes requests to planning, execution, information gathering or conversational agents",
			Tags:        []string{"routing", "classification", "orchestration"},
			Examples: []string{
				"Plan a trip to Paris from May 10 to May 15 with a $2000 budget",
				"Book a flight to New York for tomorrow at 9 AM",
				"I want to plan my trip",
				"Hello",
			},
			InputModes:  textModes,
			OutputModes: textModes,
		}}
	case config.RoleGetInfo:
		card.Name = "Get Info Agent"
		card.Description = "Collects the details missing from underspecified requests by asking targeted clarifying questions before planning or execution begins."
		card.Skills = []a2a.AgentSkill{{
			ID:          "information_gathering",
			Name:        "Information Gathering",
			Description: "Identifies gaps in a request and asks short, numbered questions for dates, budgets, locations and preferences",
			Tags:        []string{"clarification", "requirements", "questions"},
			Examples: []string{
				"I want to plan my trip",
				"Help me organize something",
				"I need a plan",
			},
			InputModes:  textModes,
			OutputModes: textModes,
		}}
	case config.RoleCreatePlan:
		card.Name = "Create Plan Agent"
		card.Description = "An intelligent planning agent that dynamically adapts to any scenario. Creates comprehensive, actionable plans by analyzing the specific context, requirements, and objectives of each unique situation."
		card.Skills = []a2a.AgentSkill{{
			ID:          "dynamic_planning",
			Name:        "Dynamic Planning",
			Description: "Creates detailed, actionable plans for any scenario by analyzing requirements, context, and objectives. Adapts to any type of planning need dynamically.",
			Tags:        []string{"planning", "strategy", "organization", "analysis", "execution"},
			Examples: []string{
				"Help me plan this task",
				"I need a plan for achieving my goal",
				"Create a strategy for my objective",
				"Help me organize this activity",
				"Make a plan for my idea",
				"How should I approach this?",
			},
			InputModes:  textModes,
			OutputModes: textModes,
		}}
	case config.RoleTaskExecutor:
		card.Name = "Task Executor Agent"
		card.Description = "Executes concrete tasks: bookings, calculations, lookups and drafts. Also carries out the execution steps of plans produced by the planning agent."
		card.Skills = []a2a.AgentSkill{{
			ID:          "task_execution",
			Name:        "Task Execution",
			Description: "Performs single concrete actions and computations, reporting exactly what was done and what requires external systems",
			Tags:        []string{"execution", "action", "calculation", "booking"},
			Examples: []string{
				"Book a flight to New York for tomorrow at 9 AM",
				"Calculate the square root of 144",
				"Draft an email to my landlord",
			},
			InputModes:  textModes,
			OutputModes: textModes,
		}}
	case config.RoleNoAction:
		card.Name = "No Action Agent"
		card.Description = "Handles greetings, small talk and messages that require no planning or execution, keeping the conversation engaging."
		card.Skills = []a2a.AgentSkill{{
			ID:          "conversation",
			Name:        "Conversation",
			Description: "Responds to greetings and general chat, pointing users at the planning and execution capabilities of the system",
			Tags:        []string{"conversation", "greeting", "engagement"},
			Examples: []string{
				"Hello",
				"How are you?",
				"Thanks!",
			},
			InputModes:  textModes,
			OutputModes: textModes,
		}}
	}
	return card
}
