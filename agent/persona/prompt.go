package persona

import (
	"fmt"
	"sort"
	"strings"
	"time"

	contractx "github.com/VictorDiniz1202/TrabalhoFILIPEVICTOR/agent/contract"
)

// BuildSystem produces the system instruction for the selected mode. It is
// recomputed every turn so the current date and the tenant's live pricing
// stay accurate; it is never cached in history.
func BuildSystem(mode contractx.Mode, tenant *contractx.Tenant, now time.Time) string {
	if mode == contractx.ModeCreative {
		return directorPrompt
	}
	return assistantPrompt(tenant, now)
}

func assistantPrompt(tenant *contractx.Tenant, now time.Time) string {
	botName := "Victor AI"
	shopName := "Barbearia Modelo"
	teamNames := contractx.PrincipalMember
	calendarMode := contractx.CalendarInternal

	if tenant != nil {
		if strings.TrimSpace(tenant.BotName) != "" {
			botName = tenant.BotName
		}
		if strings.TrimSpace(tenant.ShopName) != "" {
			shopName = tenant.ShopName
		}
		if len(tenant.Team) > 0 {
			names := make([]string, 0, len(tenant.Team))
			for _, m := range tenant.Team {
				names = append(names, m.Name)
			}
			teamNames = strings.Join(names, ", ")
		}
		if tenant.CalendarMode != "" {
			calendarMode = tenant.CalendarMode
		}
	}

	local := now.In(tenant.Location())

	var b strings.Builder
	fmt.Fprintf(&b, `CONTEXTO DO SISTEMA:
Você é o '%s', gerente da %s.
Seu trabalho é ajudar clientes a agendar serviços.
HOJE É: %s.

SUA PERSONALIDADE:
- Vibe: Urbano, educado, usa gírias leves ('mestre', 'tranquilo', 'tamo junto').
- Foco: Você quer encher a agenda. Você é vendedor.

SUAS REGRAS DE OURO (FERRAMENTAS):

1. A REGRA DA CEGUEIRA:
   Você NÃO sabe fazer vídeos. Se o cliente falar de vídeo, diga:
   "Mestre, meu negócio é tesoura e navalha. Vídeo não é comigo."

2. A REGRA DA AGENDA (CRÍTICA):
   Nunca prometa um horário sem usar a ferramenta 'verificar_agenda'.
   Sempre converta datas relativas ("amanhã à tarde") para formato ISO ("%d-MM-DDT15:00:00").

3. A REGRA DO FECHAMENTO:
   Só use 'agendar_servico' quando o cliente confirmar explicitamente.
   Sempre tente vender o Combo se o cliente pedir só Corte.

FLUXO:
Saudação -> Cliente pede -> Checa 'verificar_agenda' -> Confirma -> Usa 'agendar_servico'.
`, botName, shopName, formatNow(local), local.Year())

	b.WriteString("\n[DADOS ATUAIS]\n")
	fmt.Fprintf(&b, "- Nome do bot: %s\n", botName)
	fmt.Fprintf(&b, "- Estabelecimento: %s\n", shopName)
	fmt.Fprintf(&b, "- Profissionais: %s\n", teamNames)
	fmt.Fprintf(&b, "- Tipo de agenda: %s\n", calendarMode)
	b.WriteString(priceTable(tenant, shopName))
	b.WriteString(hoursTable(tenant))

	return b.String()
}

func priceTable(tenant *contractx.Tenant, shopName string) string {
	if tenant == nil || len(tenant.Prices) == 0 {
		return ""
	}

	services := make([]string, 0, len(tenant.Prices))
	for name := range tenant.Prices {
		services = append(services, name)
	}
	sort.Strings(services)

	var b strings.Builder
	fmt.Fprintf(&b, "TABELA %s:\n", strings.ToUpper(shopName))
	for _, name := range services {
		entry := tenant.Prices[name]
		fmt.Fprintf(&b, "- %s: R$ %.2f (%d min)\n", capitalize(name), entry.Price, entry.Duration)
	}
	return b.String()
}

func hoursTable(tenant *contractx.Tenant) string {
	if tenant == nil || len(tenant.Hours) == 0 {
		return ""
	}

	days := make([]string, 0, len(tenant.Hours))
	for day := range tenant.Hours {
		days = append(days, day)
	}
	sort.Strings(days)

	var b strings.Builder
	b.WriteString("HORÁRIO DE ATENDIMENTO:\n")
	for _, day := range days {
		h := tenant.Hours[day]
		fmt.Fprintf(&b, "- %s: %s às %s\n", weekdayNames[day], h.Open, h.Close)
	}
	return b.String()
}

var weekdayNames = map[string]string{
	"0": "domingo",
	"1": "segunda",
	"2": "terça",
	"3": "quarta",
	"4": "quinta",
	"5": "sexta",
	"6": "sábado",
}

func formatNow(local time.Time) string {
	return fmt.Sprintf("%s, %s, às %s",
		local.Format("02/01/2006"),
		weekdayNames[fmt.Sprint(int(local.Weekday()))],
		local.Format("15:04"),
	)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

const directorPrompt = `CONTEXTO:
Você é o 'Spielberg AI', um motor de inteligência artificial focado EXCLUSIVAMENTE em produção audiovisual cinematográfica.

SEUS MODOS DE OPERAÇÃO:

1. MODO TEXTO (Criação):
   - O usuário descreve uma cena.
   - Ação: chame a tool 'gerar_video_marketing'.

2. MODO IMAGEM (Animação):
   - O sistema avisa que existe uma [IMAGEM RECEBIDA].
   - Ação: use a tool 'animar_foto_cliente'.
   - Se o usuário não descrever o movimento, assuma algo cinematográfico (zoom lento, pan, partículas).

SUA PERSONALIDADE:
- Você é um Especialista Criativo. Seja minimalista e direto. "Recebi a ideia. Renderizando..."
- NÃO mencione barbearias, agendas ou qualquer outro assunto.
- Se o usuário falar de algo fora de vídeo, responda: "Sou uma IA especializada em geração de vídeo. Por favor, forneça um prompt criativo ou uma imagem."`
