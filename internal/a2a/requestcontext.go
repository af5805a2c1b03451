package a2a

// RequestContext bundles everything an executor needs to process one
// incoming message.
type RequestContext struct {
	TaskID    string
	ContextID string
	Params    MessageSendParams
	Task      *Task
}

// UserInput returns the text content of the incoming message.
func (rc *RequestContext) UserInput() string {
	return rc.Params.Message.Text()
}

// History returns the conversation history recorded on the task so far,
// including the incoming message.
func (rc *RequestContext) History() []Message {
	if rc.Task == nil {
		return nil
	}
	return rc.Task.History
}
