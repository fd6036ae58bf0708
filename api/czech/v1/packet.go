package v1

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Packet 下行帧: {"type": Type, ...Body 的字段}
type Packet struct {
	Type string
	Body any
}

func NewPacket(typ string, body any) *Packet {
	return &Packet{Type: typ, Body: body}
}

func (p *Packet) MarshalJSON() ([]byte, error) {
	head, err := json.Marshal(p.Type)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	buf.WriteString(`{"type":`)
	buf.Write(head)
	if p.Body != nil {
		body, err := json.Marshal(p.Body)
		if err != nil {
			return nil, err
		}
		if len(body) < 2 || body[0] != '{' {
			return nil, fmt.Errorf("packet %s: body must be an object, got %s", p.Type, body)
		}
		if inner := bytes.TrimSpace(body[1 : len(body)-1]); len(inner) > 0 {
			buf.WriteByte(',')
			buf.Write(inner)
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Encode 编码为一帧文本
func Encode(p *Packet) ([]byte, error) {
	return json.Marshal(p)
}
