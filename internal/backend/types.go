package backend

// ChatRequest is the body of POST /api/chat
type ChatRequest struct {
	Message   string `json:"message"`
	WebSearch bool   `json:"web_search"`
}

// ChatResponse is the body returned by the chat endpoint. A populated Error
// means the backend handled the request but refused to answer it.
type ChatResponse struct {
	Response string `json:"response"`
	RawInfo  string `json:"raw_info,omitempty"`
	Error    string `json:"error,omitempty"`
}
