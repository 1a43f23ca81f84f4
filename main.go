package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	bookingx "github.com/VictorDiniz1202/TrabalhoFILIPEVICTOR/agent/booking"
	contractx "github.com/VictorDiniz1202/TrabalhoFILIPEVICTOR/agent/contract"
	creditx "github.com/VictorDiniz1202/TrabalhoFILIPEVICTOR/agent/credit"
	dispatchx "github.com/VictorDiniz1202/TrabalhoFILIPEVICTOR/agent/dispatch"
	orchestratorx "github.com/VictorDiniz1202/TrabalhoFILIPEVICTOR/agent/orchestrator"
	sessionx "github.com/VictorDiniz1202/TrabalhoFILIPEVICTOR/agent/session"
	videox "github.com/VictorDiniz1202/TrabalhoFILIPEVICTOR/agent/video"
	configx "github.com/VictorDiniz1202/TrabalhoFILIPEVICTOR/pkg/config"
	falx "github.com/VictorDiniz1202/TrabalhoFILIPEVICTOR/pkg/fal"
	gcalx "github.com/VictorDiniz1202/TrabalhoFILIPEVICTOR/pkg/gcal"
	groqx "github.com/VictorDiniz1202/TrabalhoFILIPEVICTOR/pkg/groq"
	logx "github.com/VictorDiniz1202/TrabalhoFILIPEVICTOR/pkg/logger"
	_ "github.com/VictorDiniz1202/TrabalhoFILIPEVICTOR/pkg/logger/autoload"
	serverx "github.com/VictorDiniz1202/TrabalhoFILIPEVICTOR/server"
	storagex "github.com/VictorDiniz1202/TrabalhoFILIPEVICTOR/storage"
)

type AppConfig struct {
	// AdminNumbers are sender identities allowed to manage any tenant,
	// comma separated, e.g. "whatsapp:+5511999999999".
	AdminNumbers []string `envconfig:"ADMIN_NUMBERS" split_words:"true"`
}

func main() {
	appCfg := configx.MustNew[AppConfig]("")

	logRing := logx.NewRing(200)
	log.Logger = log.Logger.Output(zerolog.MultiLevelWriter(os.Stdout, logRing))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db := storagex.Open(*configx.MustNew[storagex.Config]("DB"))
	defer db.Close()
	if err := storagex.CreateSchema(ctx, db); err != nil {
		log.Fatal().Err(err).Msg("schema creation failed")
	}
	tenants := storagex.NewTenantRepo(db)
	appointments := storagex.NewAppointmentRepo(db)

	chat := groqx.MustNew(*configx.MustNew[groqx.Config]("GROQ"))

	var calendar *gcalx.Service
	if gcalCfg, err := configx.New[gcalx.Config]("GCAL"); err != nil {
		log.Warn().Err(err).Msg("google calendar disabled")
	} else if calendar, err = gcalx.NewService(*gcalCfg); err != nil {
		log.Fatal().Err(err).Msg("google calendar setup failed")
	}

	var video contractx.VideoGenerator
	if falCfg, err := configx.New[falx.Config]("FAL"); err != nil {
		log.Warn().Err(err).Msg("video generation disabled")
	} else {
		renderer := falx.MustNew(*falCfg)
		gen, err := videox.NewGenerator(chat, renderer)
		if err != nil {
			log.Fatal().Err(err).Msg("video generator setup failed")
		}
		video = gen
	}

	engine, err := dispatchx.NewEngine(chat)
	if err != nil {
		log.Fatal().Err(err).Msg("dispatch engine setup failed")
	}

	var calendarSvc contractx.CalendarService
	if calendar != nil {
		calendarSvc = calendar
	}
	booking, err := bookingx.NewService(appointments, calendarSvc)
	if err != nil {
		log.Fatal().Err(err).Msg("booking service setup failed")
	}

	credits, err := creditx.NewLedger(tenants)
	if err != nil {
		log.Fatal().Err(err).Msg("credit ledger setup failed")
	}

	sessions := sessionx.NewMemoryStore()

	orch, err := orchestratorx.New(tenants, sessions, engine, booking, credits, video, orchestratorx.Config{
		AdminSenders: appCfg.AdminNumbers,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("orchestrator setup failed")
	}

	stripeCfg := configx.MustNew[serverx.PaymentsConfig]("STRIPE")
	payments := serverx.NewPayments(tenants, tenants, *stripeCfg)
	if strings.TrimSpace(stripeCfg.APIKey) == "" {
		log.Warn().Msg("stripe key not set, payments run in simulation mode")
	}

	serverCfg := configx.MustNew[serverx.Config]("SERVER")
	srv, err := serverx.New(orch, tenants, appointments, booking, credits, calendar, video, logRing, payments, *serverCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("server setup failed")
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", serverCfg.Addr).Msg("listening")
		return srv.ListenAndServe(ctx)
	})

	if err := g.Wait(); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
	log.Info().Msg("shutdown complete")
}
