package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	echoapi "github.com/tabunganku/backend/apps/api/echo"
	"github.com/tabunganku/backend/core"
	"github.com/tabunganku/backend/core/profile"
	"github.com/tabunganku/backend/core/schedule"
	"github.com/tabunganku/backend/core/student"
	"github.com/tabunganku/backend/core/transaction"
	emailsvc "github.com/tabunganku/backend/services/email"
	logsvc "github.com/tabunganku/backend/services/logger"
	"github.com/tabunganku/backend/storage/database"
	sqlxrepos "github.com/tabunganku/backend/storage/database/sqlx"
)

const shutdownTimeout = 20 * time.Second

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	// set up loggers
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)

	dbLogger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	dbLogger.Enable(!conf.Debug)

	// set up DB
	db, err := setUpDB(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	defer func() {
		if err = db.Close(); err != nil {
			dbLogger.Fatal("Failed to close", err)
		}
	}()

	// set up services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}

	validate := validator.New()
	translator := newTranslator()
	core.InitValidators(validate, translator)
	profile.RegisterValidations(validate, translator)

	profileRepo := sqlxrepos.NewProfileRepository(db)
	studentRepo := sqlxrepos.NewStudentRepository(db)
	txnRepo := sqlxrepos.NewTransactionRepository(db)
	schedRepo := sqlxrepos.NewScheduleRepository(db)

	profileSvc := profile.NewService(conf, db, profileRepo, mailSvc)
	studentSvc := student.NewService(db, studentRepo, logger)
	schedSvc := schedule.NewService(db, schedRepo, validate, logger)
	txnSvc := transaction.NewService(db, txnRepo, validate, schedSvc)

	// =========================================================================
	// Start API Service

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	server := echoapi.NewServer(
		&echoapi.Options{
			Address:        conf.Server.Address(),
			Conf:           conf,
			Logger:         logger,
			Validate:       validate,
			Translator:     translator,
			ProfileSvc:     profileSvc,
			StudentSvc:     studentSvc,
			TransactionSvc: txnSvc,
			ScheduleSvc:    schedSvc,
			SignalShutdown: func() { shutdown <- syscall.SIGTERM },
		},
	)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
			logger.Fatal(fmt.Sprintf("server error: %v", err), err)
		}

	case sig := <-shutdown:
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err = server.Stop(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)
		}
	}
}

func setUpDB(conf *core.Config) (*sql.DB, error) {
	if err := database.CreateIfNotExist(conf); err != nil {
		return nil, err
	}

	db, err := database.Open(conf)
	if err != nil {
		return nil, err
	}

	if err = database.Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}
