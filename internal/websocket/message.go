package websocket

import "encoding/json"

// Message defines the structure for websocket messages.
type Message struct {
	Action  string      `json:"action"`
	Payload interface{} `json:"payload"`
}

// NewPostMessage builds the broadcast for a newly published post.
func NewPostMessage(post interface{}) []byte {
	return marshal(Message{Action: "post_created", Payload: post})
}

// NewCommentMessage builds the broadcast for a newly appended comment.
func NewCommentMessage(postID string, comment interface{}) []byte {
	return marshal(Message{Action: "comment_created", Payload: map[string]interface{}{
		"postId":  postID,
		"comment": comment,
	}})
}

// NewErrorMessage builds an error message for a single client.
func NewErrorMessage(text string) []byte {
	return marshal(Message{Action: "error", Payload: text})
}

func marshal(msg Message) []byte {
	b, _ := json.Marshal(msg)
	return b
}
