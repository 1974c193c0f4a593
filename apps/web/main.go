package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"

	echoweb "github.com/raavitutorials/webapp/apps/web/echo"
	"github.com/raavitutorials/webapp/core"
	"github.com/raavitutorials/webapp/core/profile"
	"github.com/raavitutorials/webapp/core/register"
	emailsvc "github.com/raavitutorials/webapp/services/email"
	logsvc "github.com/raavitutorials/webapp/services/logger"
	"github.com/raavitutorials/webapp/services/supabase"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf, err := core.NewConfig()
	if err != nil {
		log.Fatalf("loading configuration: %v", err)
	}

	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "WEB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)

	client := supabase.NewClient(conf.Supabase.URL, conf.Supabase.AnonKey)
	profileSvc := profile.NewService(client)
	registerSvc := register.NewService(client, profileSvc, logger, conf)

	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}

	sessions := echoweb.NewSessionStore(conf, client, profileSvc, logger)
	defer sessions.Close()

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	server := echoweb.NewServer(&echoweb.Options{
		Address:     conf.Server.Addr,
		Config:      conf,
		Logger:      logger,
		Client:      client,
		ProfileSvc:  profileSvc,
		RegisterSvc: registerSvc,
		EmailSvc:    mailSvc,
		Sessions:    sessions,
		Translator:  newTranslator(),
		SignalShutdown: func() {
			shutdown <- syscall.SIGTERM
		},
	})

	go server.Start()

	// =========================================================================
	// Shutdown

	sig := <-shutdown
	logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

	// give outstanding requests a deadline for completion
	ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
	defer cancel()

	if err = server.Stop(ctx); err != nil {
		logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)
	}
}

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}
