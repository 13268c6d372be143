// Package codec serializes transactions and alerts as flat field mappings.
// JSON is the default wire format; the protobuf codec carries the same
// mapping as a google.protobuf.Struct.
package codec

import (
	"encoding/json"
	"fmt"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"fraudstream/internal/domain"
)

type Codec interface {
	Name() string
	Marshal(fields map[string]any) ([]byte, error)
	Unmarshal(data []byte) (map[string]any, error)
}

// ByName resolves a codec from configuration.
func ByName(name string) (Codec, error) {
	switch name {
	case "", "json":
		return JSON{}, nil
	case "proto", "protobuf":
		return Proto{}, nil
	default:
		return nil, fmt.Errorf("unknown codec %q", name)
	}
}

type JSON struct{}

func (JSON) Name() string { return "json" }

func (JSON) Marshal(fields map[string]any) ([]byte, error) {
	return json.Marshal(fields)
}

func (JSON) Unmarshal(data []byte) (map[string]any, error) {
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformed, err)
	}
	if m == nil {
		return nil, fmt.Errorf("%w: not an object", domain.ErrMalformed)
	}
	return m, nil
}

type Proto struct{}

func (Proto) Name() string { return "proto" }

func (Proto) Marshal(fields map[string]any) ([]byte, error) {
	s, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, fmt.Errorf("build struct: %w", err)
	}
	return proto.Marshal(s)
}

func (Proto) Unmarshal(data []byte) (map[string]any, error) {
	var s structpb.Struct
	if err := proto.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformed, err)
	}
	return s.AsMap(), nil
}

func EncodeTransaction(c Codec, tx domain.Transaction) ([]byte, error) {
	return c.Marshal(tx.Fields())
}

// DecodeTransaction returns domain.ErrMalformed for undecodable payloads and
// for payloads missing any transaction field.
func DecodeTransaction(c Codec, data []byte) (domain.Transaction, error) {
	m, err := c.Unmarshal(data)
	if err != nil {
		return domain.Transaction{}, err
	}
	return domain.TransactionFromFields(m)
}

func EncodeAlert(c Codec, a domain.FraudAlert) ([]byte, error) {
	return c.Marshal(a.Fields())
}

func DecodeAlert(c Codec, data []byte) (domain.FraudAlert, error) {
	m, err := c.Unmarshal(data)
	if err != nil {
		return domain.FraudAlert{}, err
	}
	return domain.FraudAlertFromFields(m)
}
