// Package tool declares the closed set of tools the model may invoke, one
// strongly typed argument struct per tool, and the fail-closed parser that
// turns a raw model tool call into a typed invocation.
package tool

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	contractx "github.com/VictorDiniz1202/TrabalhoFILIPEVICTOR/agent/contract"
)

const (
	NameCheckAvailability = "verificar_agenda"
	NameBookService       = "agendar_servico"
	NameUpdatePrice       = "alterar_preco_servico"
	NameGenerateVideo     = "gerar_video_marketing"
	NameAnimatePhoto      = "animar_foto_cliente"
)

// Args is the closed union of tool argument types.
type Args interface {
	toolName() string
}

type CheckAvailabilityArgs struct {
	Member string `json:"nome_barbeiro,omitempty"`
	Date   string `json:"data,omitempty"` // AAAA-MM-DD prefix filter, optional
}

type BookServiceArgs struct {
	StartTime    string `json:"data_hora"`
	CustomerName string `json:"nome_cliente"`
	Member       string `json:"nome_barbeiro,omitempty"`
	Service      string `json:"servico,omitempty"`
}

type UpdatePriceArgs struct {
	Service string  `json:"servico"`
	Price   float64 `json:"novo_valor"`
}

type GenerateVideoArgs struct {
	Idea string `json:"descricao_ideia"`
}

type AnimatePhotoArgs struct {
	ImageURL string `json:"url_imagem"`
	Motion   string `json:"ideia_movimento"`
}

func (CheckAvailabilityArgs) toolName() string { return NameCheckAvailability }
func (BookServiceArgs) toolName() string       { return NameBookService }
func (UpdatePriceArgs) toolName() string       { return NameUpdatePrice }
func (GenerateVideoArgs) toolName() string     { return NameGenerateVideo }
func (AnimatePhotoArgs) toolName() string      { return NameAnimatePhoto }

// Invocation is one validated tool call ready for dispatch.
type Invocation struct {
	ID   string
	Name string
	Args Args
}

// Parse validates a raw model tool call against the declared schema. Unknown
// tools, unknown fields and missing required fields all fail here, before any
// side effect.
func Parse(call contractx.ToolCall) (Invocation, error) {
	name := strings.TrimSpace(call.Name)

	var args Args
	switch name {
	case NameCheckAvailability:
		args = &CheckAvailabilityArgs{}
	case NameBookService:
		args = &BookServiceArgs{}
	case NameUpdatePrice:
		args = &UpdatePriceArgs{}
	case NameGenerateVideo:
		args = &GenerateVideoArgs{}
	case NameAnimatePhoto:
		args = &AnimatePhotoArgs{}
	default:
		return Invocation{}, fmt.Errorf("%w: unknown tool %q", contractx.ErrValidation, name)
	}

	raw := strings.TrimSpace(call.Arguments)
	if raw == "" {
		raw = "{}"
	}
	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(args); err != nil {
		return Invocation{}, fmt.Errorf("%w: malformed arguments for %s: %v", contractx.ErrValidation, name, err)
	}

	if err := validate(args); err != nil {
		return Invocation{}, err
	}

	return Invocation{ID: call.ID, Name: name, Args: deref(args)}, nil
}

func validate(args Args) error {
	switch a := args.(type) {
	case *BookServiceArgs:
		if strings.TrimSpace(a.StartTime) == "" {
			return fmt.Errorf("%w: %s requires data_hora", contractx.ErrValidation, NameBookService)
		}
		if strings.TrimSpace(a.CustomerName) == "" {
			return fmt.Errorf("%w: %s requires nome_cliente", contractx.ErrValidation, NameBookService)
		}
	case *UpdatePriceArgs:
		if strings.TrimSpace(a.Service) == "" {
			return fmt.Errorf("%w: %s requires servico", contractx.ErrValidation, NameUpdatePrice)
		}
		if a.Price <= 0 {
			return fmt.Errorf("%w: %s requires novo_valor > 0", contractx.ErrValidation, NameUpdatePrice)
		}
	case *GenerateVideoArgs:
		if strings.TrimSpace(a.Idea) == "" {
			return fmt.Errorf("%w: %s requires descricao_ideia", contractx.ErrValidation, NameGenerateVideo)
		}
	case *AnimatePhotoArgs:
		if strings.TrimSpace(a.ImageURL) == "" {
			return fmt.Errorf("%w: %s requires url_imagem", contractx.ErrValidation, NameAnimatePhoto)
		}
		if strings.TrimSpace(a.Motion) == "" {
			return fmt.Errorf("%w: %s requires ideia_movimento", contractx.ErrValidation, NameAnimatePhoto)
		}
	}
	return nil
}

func deref(args Args) Args {
	switch a := args.(type) {
	case *CheckAvailabilityArgs:
		return *a
	case *BookServiceArgs:
		return *a
	case *UpdatePriceArgs:
		return *a
	case *GenerateVideoArgs:
		return *a
	case *AnimatePhotoArgs:
		return *a
	}
	return args
}
