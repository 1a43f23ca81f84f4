package tool

import (
	contractx "github.com/VictorDiniz1202/TrabalhoFILIPEVICTOR/agent/contract"
)

// SpecsFor returns the toolset declared to the model for the given mode. The
// toolsets are fixed per mode; the persona layer decides the mode.
func SpecsFor(mode contractx.Mode) []contractx.ToolSpec {
	if mode == contractx.ModeCreative {
		return creativeSpecs()
	}
	return assistantSpecs()
}

func assistantSpecs() []contractx.ToolSpec {
	return []contractx.ToolSpec{
		{
			Name:        NameCheckAvailability,
			Description: "Verifica horários disponíveis.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"nome_barbeiro": map[string]any{"type": "string", "description": "Nome do profissional (opcional)"},
					"data":          map[string]any{"type": "string", "description": "Data para verificar (AAAA-MM-DD). Opcional."},
				},
			},
		},
		{
			Name:        NameBookService,
			Description: "Agenda serviço.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"data_hora":     map[string]any{"type": "string", "description": "Início em ISO (AAAA-MM-DDTHH:MM:SS)"},
					"nome_cliente":  map[string]any{"type": "string"},
					"nome_barbeiro": map[string]any{"type": "string", "description": "Profissional escolhido (ou Principal)"},
					"servico":       map[string]any{"type": "string", "description": "Serviço desejado (opcional)"},
				},
				"required": []string{"data_hora", "nome_cliente"},
			},
		},
		{
			Name:        NameUpdatePrice,
			Description: "ADMIN ONLY. Altera preços.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"servico":    map[string]any{"type": "string"},
					"novo_valor": map[string]any{"type": "number"},
				},
				"required": []string{"servico", "novo_valor"},
			},
		},
	}
}

func creativeSpecs() []contractx.ToolSpec {
	return []contractx.ToolSpec{
		{
			Name:        NameGenerateVideo,
			Description: "Cria vídeo a partir de texto.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"descricao_ideia": map[string]any{"type": "string"},
				},
				"required": []string{"descricao_ideia"},
			},
		},
		{
			Name:        NameAnimatePhoto,
			Description: "Anima foto.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"url_imagem":      map[string]any{"type": "string"},
					"ideia_movimento": map[string]any{"type": "string"},
				},
				"required": []string{"url_imagem", "ideia_movimento"},
			},
		},
	}
}
