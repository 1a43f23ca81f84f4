// Package video turns rough user ideas into rendered marketing videos. The
// raw idea is first refined into a technical English prompt by the LLM, then
// submitted to the render backend.
package video

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog/log"

	contractx "github.com/VictorDiniz1202/TrabalhoFILIPEVICTOR/agent/contract"
	falx "github.com/VictorDiniz1202/TrabalhoFILIPEVICTOR/pkg/fal"
)

const defaultMotion = "Make it alive, subtle cinematic movement."

type Generator struct {
	chat     contractx.ChatClient
	renderer *falx.Client
}

var _ contractx.VideoGenerator = (*Generator)(nil)

func NewGenerator(chat contractx.ChatClient, renderer *falx.Client) (*Generator, error) {
	if chat == nil {
		return nil, errors.New("chat client is required")
	}
	if renderer == nil {
		return nil, errors.New("render client is required")
	}
	return &Generator{chat: chat, renderer: renderer}, nil
}

type refinedPrompt struct {
	Prompt         string `json:"prompt"`
	NegativePrompt string `json:"negative_prompt"`
}

func (g *Generator) FromText(ctx context.Context, idea string) (string, error) {
	refined := g.refine(ctx, idea, directorSystemPrompt, "cartoon, blur, watermark, bad quality, distortion")

	return g.renderer.Render(ctx, falx.ModelTextToVideo, map[string]any{
		"prompt":              refined.Prompt,
		"negative_prompt":     refined.NegativePrompt,
		"aspect_ratio":        "16:9",
		"num_inference_steps": 30,
		"guidance_scale":      5.0,
	})
}

func (g *Generator) FromImage(ctx context.Context, imageURL, motion string) (string, error) {
	if len(strings.TrimSpace(motion)) < 3 {
		motion = defaultMotion
	}
	refined := g.refine(ctx, motion, vfxSystemPrompt, "morphing, distortion, bad anatomy, changing face, static, low frame rate")

	return g.renderer.Render(ctx, falx.ModelImageToVideo, map[string]any{
		"image_url":           imageURL,
		"prompt":              refined.Prompt,
		"negative_prompt":     refined.NegativePrompt,
		"aspect_ratio":        "16:9",
		"num_inference_steps": 30,
		"guidance_scale":      5.0,
	})
}

// refine is best-effort: when the refinement call fails, the raw idea is sent
// to the renderer with a generic quality suffix rather than failing the
// whole generation.
func (g *Generator) refine(ctx context.Context, idea, system, fallbackNegative string) refinedPrompt {
	var out refinedPrompt
	err := g.chat.CompleteJSON(ctx, system, "Pedido do usuário: "+idea, &out)
	if err != nil || strings.TrimSpace(out.Prompt) == "" {
		log.Warn().Err(err).Msg("prompt refinement failed, using raw idea")
		return refinedPrompt{
			Prompt:         idea + ", high quality, cinematic motion",
			NegativePrompt: fallbackNegative,
		}
	}
	if strings.TrimSpace(out.NegativePrompt) == "" {
		out.NegativePrompt = fallbackNegative
	}
	return out
}

const directorSystemPrompt = `ATUE COMO: Um Diretor de Cinema especialista em IA Generativa.

SUA TAREFA:
Transformar uma ideia simples em um Roteiro Visual Completo.

ELEMENTOS OBRIGATÓRIOS:
1. VISUAL: Descreva o sujeito e o cenário com riqueza de detalhes (texturas, cores).
2. LUZ: Especifique a iluminação (Cinematic, Volumetric, Neon, Golden Hour).
3. LENTE: Especifique a câmera (85mm, Wide Angle, Drone shot, 4k).
4. MOVIMENTO: Descreva a ação (Running, Slow motion, Walking towards camera).

ESTRUTURA DO JSON:
{
    "prompt": "Prompt detalhado em inglês...",
    "negative_prompt": "cartoon, blur, watermark, bad quality, distortion"
}`

const vfxSystemPrompt = `ATUE COMO: Um Supervisor de VFX especialista em animar imagens estáticas (Image-to-Video).

REGRAS CRÍTICAS PARA ANIMAÇÃO DE FOTO:
1. PRESERVAÇÃO: O prompt deve focar no movimento, não na descrição do sujeito.
2. FÍSICA E DETALHES: Adicione detalhes como "wind blowing hair", "subtle breathing", "blinking eyes".
3. CÂMERA: Adicione movimentos que dão profundidade ("slow dolly in", "parallax effect", "pan right").
4. SE O USUÁRIO FOR VAGO: Invente um movimento sutil e elegante.

ESTRUTURA DO JSON:
{
    "prompt": "Descrição técnica em INGLÊS focada em AÇÃO e MOVIMENTO...",
    "negative_prompt": "morphing, distortion, bad anatomy, changing face, static, low frame rate"
}`
