package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

var (
	ErrUnknownMessage = errors.New("unknown message type")
	ErrUnknownCodec   = errors.New("unknown codec")
)

// Codec переводит сообщения в кадры и обратно.
type Codec interface {
	Name() string
	// Binary сообщает, отправляются ли кадры как бинарные, а не текстовые.
	Binary() bool
	Encode(v any) ([]byte, error)
	// Unmarshal декодирует кадр в v без проверки. Клиенты используют его
	// для сообщений сервера.
	Unmarshal(data []byte, v any) error
	Decode(data []byte) (ClientMessage, error)
}

// CodecFor возвращает кодек, зарегистрированный под именем name.
func CodecFor(name string) (Codec, error) {
	switch name {
	case "json", "":
		return JSONCodec{}, nil
	case "msgpack":
		return MsgpackCodec{}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownCodec, name)
}

func validate(m ClientMessage) (ClientMessage, error) {
	switch m.Type {
	case TypeInput:
		if m.Inputs == nil {
			return m, fmt.Errorf("%s without inputs", m.Type)
		}
	case TypeChangeName, TypePing:
	default:
		return m, fmt.Errorf("%w: %q", ErrUnknownMessage, m.Type)
	}
	return m, nil
}

type JSONCodec struct{}

func (JSONCodec) Name() string { return "json" }
func (JSONCodec) Binary() bool { return false }

func (JSONCodec) Encode(v any) ([]byte, error) { return json.Marshal(v) }

func (JSONCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

func (JSONCodec) Decode(data []byte) (ClientMessage, error) {
	var m ClientMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return m, fmt.Errorf("decode json: %w", err)
	}
	return validate(m)
}

// MsgpackCodec использует имена полей json, так что у обеих кодировок одна схема.
type MsgpackCodec struct{}

func (MsgpackCodec) Name() string { return "msgpack" }
func (MsgpackCodec) Binary() bool { return true }

func (MsgpackCodec) Encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (MsgpackCodec) Unmarshal(data []byte, v any) error {
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	dec.SetCustomStructTag("json")
	return dec.Decode(v)
}

func (c MsgpackCodec) Decode(data []byte) (ClientMessage, error) {
	var m ClientMessage
	if err := c.Unmarshal(data, &m); err != nil {
		return m, fmt.Errorf("decode msgpack: %w", err)
	}
	return validate(m)
}
