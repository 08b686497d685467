// Command marketfeed brings up one WebSocket bot per configured venue,
// fans normalized events out to in-process and NATS recipients, and
// serves the REST façade over HTTP. Wiring follows the teacher's
// cmd/feed/main.go shape: flags, config, logger, shutdown hooks.
package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/BullionBear/marketfeed/internal/config"
	"github.com/BullionBear/marketfeed/internal/credentials"
	"github.com/BullionBear/marketfeed/internal/dispatch"
	"github.com/BullionBear/marketfeed/internal/httpapi"
	"github.com/BullionBear/marketfeed/internal/orderlog"
	"github.com/BullionBear/marketfeed/internal/recipient/inprocrecipient"
	"github.com/BullionBear/marketfeed/internal/recipient/natsrecipient"
	"github.com/BullionBear/marketfeed/internal/rest"
	restbinance "github.com/BullionBear/marketfeed/internal/rest/binance"
	restbitstamp "github.com/BullionBear/marketfeed/internal/rest/bitstamp"
	restbittrex "github.com/BullionBear/marketfeed/internal/rest/bittrex"
	streamingbinance "github.com/BullionBear/marketfeed/internal/streaming/binance"
	streamingbitstamp "github.com/BullionBear/marketfeed/internal/streaming/bitstamp"
	streamingbittrex "github.com/BullionBear/marketfeed/internal/streaming/bittrex"
	"github.com/BullionBear/marketfeed/internal/venue"
	"github.com/BullionBear/marketfeed/internal/wsclient"
	"github.com/BullionBear/marketfeed/pkg/logger"
	"github.com/BullionBear/marketfeed/pkg/shutdown"
	"github.com/gin-gonic/gin"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title marketfeed API
// @version 1.0
// @description Normalized market-data and order-placement façade over Bitstamp, Binance and Bittrex.
// @BasePath /api/v1

func main() {
	var botsPath, credsPath, natsConnStr, httpPort string
	var pgHost, pgUser, pgPassword, pgDBName, pgSSLMode, pgTimeZone string
	var pgPort int
	var devLog bool
	flag.StringVar(&botsPath, "bots", "bots.json", "Path to the bot selection config")
	flag.StringVar(&credsPath, "creds", "", "Path to the per-account credentials file (optional)")
	flag.StringVar(&natsConnStr, "nats", "", "NATS connection string, e.g. nats://host:4222?stream=marketfeed&subject=marketfeed (overrides bots.json's nats block)")
	flag.StringVar(&httpPort, "p", "8080", "HTTP port for the REST façade")
	flag.StringVar(&pgHost, "pg-host", "", "Postgres host for the order audit log (empty disables auditing)")
	flag.IntVar(&pgPort, "pg-port", 5432, "Postgres port for the order audit log")
	flag.StringVar(&pgUser, "pg-user", "marketfeed", "Postgres user for the order audit log")
	flag.StringVar(&pgPassword, "pg-password", "", "Postgres password for the order audit log")
	flag.StringVar(&pgDBName, "pg-dbname", "marketfeed", "Postgres database name for the order audit log")
	flag.StringVar(&pgSSLMode, "pg-sslmode", "disable", "Postgres sslmode for the order audit log")
	flag.StringVar(&pgTimeZone, "pg-timezone", "UTC", "Postgres TimeZone for the order audit log")
	flag.BoolVar(&devLog, "dev", false, "Enable human-friendly console logging")
	flag.Parse()

	logger.InitLogger(devLog)
	log := logger.Get()

	sd := shutdown.NewShutdown(log)

	botsCfg, err := config.LoadBotsConfig(botsPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", botsPath).Msg("failed to load bot config")
	}

	var nc *nats.Conn
	var js nats.JetStreamContext
	var natsSubject string
	if uris, subject, ok := resolveNATSTarget(natsConnStr, botsCfg.NATS); ok {
		var err error
		nc, err = nats.Connect(uris)
		if err != nil {
			log.Fatal().Err(err).Str("uris", uris).Msg("failed to connect to NATS")
		}
		js, err = nc.JetStream()
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create JetStream context")
		}
		natsSubject = subject
		sd.HookShutdownCallback("nats-connection", func() { nc.Close() }, 5*time.Second)
	}

	var audit httpapi.AuditRecorder
	if pgHost != "" {
		store, err := orderlog.Open(pgHost, pgPort, pgUser, pgPassword, pgDBName, pgSSLMode, pgTimeZone)
		if err != nil {
			log.Fatal().Err(err).Str("host", pgHost).Msg("failed to open order audit log")
		}
		audit = store
	}

	venues := make(httpapi.Venues, len(botsCfg.Bots))
	bots := make([]*dispatch.Bot, 0, len(botsCfg.Bots))

	for _, settings := range botsCfg.Bots {
		registry := registryFor(settings.Exchange)
		if registry == nil {
			log.Error().Str("exchange", string(settings.Exchange)).Msg("unsupported exchange in bot config, skipping")
			continue
		}

		var creds rest.Credentials
		if settings.Account != "" && credsPath != "" {
			c, err := credentials.LoadFile(credsPath, settings.Account, settings.Exchange)
			if err != nil {
				log.Error().Err(err).Str("account", settings.Account).Msg("failed to load credentials, continuing unauthenticated")
			} else {
				creds = c
			}
		}
		if creds == nil {
			creds = emptyCredentials{exchange: settings.Exchange}
		}

		recipients := []dispatch.Recipient{inprocrecipient.New(1024, log)}
		if js != nil {
			subject := natsSubject
			if settings.NATSSubject != "" {
				subject = settings.NATSSubject
			}
			recipients = append(recipients, natsrecipient.New(nc, js, subject, log))
		}
		fanout := dispatch.NewFanout(settings.Exchange, recipients, log)

		connector, endpoint, adapter := buildVenue(settings, registry, creds, fanout, log)
		if connector == nil {
			continue
		}
		venues[settings.Exchange] = connector

		bot := dispatch.NewBot(settings.Exchange, endpoint, adapter, log)
		if err := bot.Start(); err != nil {
			log.Error().Err(err).Str("exchange", string(settings.Exchange)).Msg("failed to start venue bot")
			continue
		}
		bots = append(bots, bot)

		exchange := settings.Exchange
		sd.HookShutdownCallback(fmt.Sprintf("bot-%s", exchange), func() {
			if err := bot.Stop(); err != nil {
				log.Error().Err(err).Str("exchange", string(exchange)).Msg("error stopping bot")
			}
		}, 5*time.Second)
	}

	router := gin.Default()
	router.Use(httpapi.AllowAllCors)
	v1 := router.Group("/api/v1")
	httpapi.New(v1, venues, audit)
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	srv := &http.Server{Addr: ":" + httpPort, Handler: router}
	go func() {
		log.Info().Str("port", httpPort).Msg("starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("HTTP server failed")
			os.Exit(1)
		}
	}()
	sd.HookShutdownCallback("http-server", func() {
		_ = srv.Close()
	}, 10*time.Second)

	sd.WaitForShutdown(syscall.SIGINT, syscall.SIGTERM)
	log.Info().Int("bots", len(bots)).Msg("marketfeed stopped gracefully")
}

type emptyCredentials struct {
	exchange venue.Exchange
}

func (c emptyCredentials) Exchange() venue.Exchange      { return c.exchange }
func (c emptyCredentials) Get(key string) (string, bool) { return "", false }

// resolveNATSTarget picks the NATS connection string and publish subject
// to use: an explicit -nats connection string wins, parsed through
// config.ParseConnectionString; otherwise the bots.json nats block, via
// NATSConfig.GetNATSURIs. ok is false when neither is configured, or when
// the -nats string fails to parse.
func resolveNATSTarget(connStr string, fileCfg *config.NATSConfig) (uris, subject string, ok bool) {
	if connStr != "" {
		cc, err := config.ParseConnectionString(connStr)
		if err != nil {
			return "", "", false
		}
		bare := &config.ConnectionConfig{Host: cc.Host, Port: cc.Port, Username: cc.Username, Password: cc.Password}
		return bare.ToNATSURL(), cc.GetParam("subject", "marketfeed"), true
	}
	if fileCfg != nil && fileCfg.URIs != "" {
		uris := fileCfg.GetNATSURIs()
		if len(uris) == 0 {
			return "", "", false
		}
		subject := fileCfg.Subject
		if subject == "" {
			subject = "marketfeed"
		}
		return strings.Join(uris, ","), subject, true
	}
	return "", "", false
}

func registryFor(exchange venue.Exchange) *venue.Registry {
	switch exchange {
	case venue.ExchangeBitstamp:
		return venue.BitstampRegistry()
	case venue.ExchangeBinance:
		return venue.BinanceRegistry()
	case venue.ExchangeBittrex:
		return venue.BittrexRegistry()
	default:
		return nil
	}
}

// buildVenue constructs the REST connector and streaming Adapter for one
// configured venue, wired to emit onto fanout. Returns a nil connector
// if the exchange has no streaming support or the Bittrex SignalR
// negotiate fails.
func buildVenue(settings config.ExchangeSettings, registry *venue.Registry, creds rest.Credentials, fanout *dispatch.Fanout, log *zerolog.Logger) (rest.Connector, string, wsclient.Adapter) {
	subs := dispatch.FilterChannels(registry, settings.Channels())

	switch settings.Exchange {
	case venue.ExchangeBitstamp:
		client := restbitstamp.New(registry, creds)
		adapter := streamingbitstamp.New(registry, subs, fanout, settings.Depth, log)
		return client, streamingbitstamp.StreamURL, adapter
	case venue.ExchangeBinance:
		client := restbinance.New(registry, creds)
		adapter := streamingbinance.New(registry, subs, fanout, client, settings.Depth, log)
		return client, streamingbinance.StreamURL, adapter
	case venue.ExchangeBittrex:
		client := restbittrex.New(registry, creds)
		adapter := streamingbittrex.New(registry, subs, fanout, settings.Depth, log)
		endpoint, err := streamingbittrex.Negotiate(nil)
		if err != nil {
			log.Error().Err(err).Msg("bittrex signalr negotiate failed, skipping bot")
			return nil, "", nil
		}
		return client, endpoint, adapter
	default:
		return nil, "", nil
	}
}
