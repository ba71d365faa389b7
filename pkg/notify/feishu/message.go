package feishu

// Message 飞书消息
type Message interface {
	Type() string
	Content() interface{}
}

// TextMessage 纯文本消息
type TextMessage struct {
	text string
}

func NewTextMessage(text string) *TextMessage {
	return &TextMessage{text: text}
}

func (m *TextMessage) Type() string { return "text" }

func (m *TextMessage) Content() interface{} {
	return map[string]interface{}{"text": m.text}
}

// PostMessage 富文本消息，每行由若干元素组成
type PostMessage struct {
	title   string
	content [][]MessageElement
}

// MessageElement 富文本元素
type MessageElement struct {
	Tag    string `json:"tag"`
	Text   string `json:"text,omitempty"`
	UserID string `json:"user_id,omitempty"`
}

func NewPostMessage(title string) *PostMessage {
	return &PostMessage{title: title, content: [][]MessageElement{}}
}

// AddLine 追加一行
func (m *PostMessage) AddLine(elements ...MessageElement) *PostMessage {
	m.content = append(m.content, elements)
	return m
}

func (m *PostMessage) Type() string { return "post" }

func (m *PostMessage) Content() interface{} {
	return map[string]interface{}{
		"post": map[string]interface{}{
			"zh_cn": map[string]interface{}{
				"title":   m.title,
				"content": m.content,
			},
		},
	}
}

func Text(text string) MessageElement {
	return MessageElement{Tag: "text", Text: text}
}

func At(userID string) MessageElement {
	return MessageElement{Tag: "at", UserID: userID}
}

func AtAll() MessageElement {
	return MessageElement{Tag: "at", UserID: "all"}
}
