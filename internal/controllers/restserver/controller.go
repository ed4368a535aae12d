// Package restserver serves the station index, cached time series, and
// climate aggregates over HTTP for the charting front end.
package restserver

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/retrowetter/retrowetter/internal/dwd"
	"github.com/retrowetter/retrowetter/internal/log"
	"github.com/retrowetter/retrowetter/internal/types"
	"github.com/retrowetter/retrowetter/pkg/config"
	"go.uber.org/zap"
)

// SeriesSource provides range-filtered, cached station series. Implemented
// by *dwd.Provider.
type SeriesSource interface {
	FetchCached(ctx context.Context, stationID string, dateRange types.DateRange) (types.TimeSeries, error)
	Invalidate(stationID string) error
}

// Controller represents the REST server controller
type Controller struct {
	ctx      context.Context
	wg       *sync.WaitGroup
	httpCfg  config.HTTPData
	index    *dwd.StationIndex
	source   SeriesSource
	Server   http.Server
	logger   *zap.SugaredLogger
	handlers *Handlers
}

// NewController creates a new REST server controller
func NewController(ctx context.Context, wg *sync.WaitGroup, httpCfg config.HTTPData, index *dwd.StationIndex, source SeriesSource, logger *zap.SugaredLogger) (*Controller, error) {
	if index == nil {
		return nil, fmt.Errorf("a station index is required")
	}
	if source == nil {
		return nil, fmt.Errorf("a series source is required")
	}

	if httpCfg.ListenAddr == "" {
		logger.Info("http.listen_addr not provided; defaulting to 0.0.0.0 (all interfaces)")
		httpCfg.ListenAddr = "0.0.0.0"
	}
	if httpCfg.Port == 0 {
		logger.Info("http.port not provided; defaulting to 8080")
		httpCfg.Port = 8080
	}

	ctrl := &Controller{
		ctx:     ctx,
		wg:      wg,
		httpCfg: httpCfg,
		index:   index,
		source:  source,
		logger:  logger,
	}
	ctrl.handlers = NewHandlers(ctrl)

	router := ctrl.setupRouter()
	ctrl.Server.Addr = fmt.Sprintf("%v:%v", httpCfg.ListenAddr, httpCfg.Port)
	ctrl.Server.Handler = router

	return ctrl, nil
}

// StartController starts the REST server
func (c *Controller) StartController() error {
	log.Info("Starting REST server controller...")
	c.wg.Add(1)

	go func() {
		defer c.wg.Done()

		if c.httpCfg.TLSCertPath != "" && c.httpCfg.TLSKeyPath != "" {
			if err := c.Server.ListenAndServeTLS(c.httpCfg.TLSCertPath, c.httpCfg.TLSKeyPath); err != http.ErrServerClosed {
				log.Errorf("REST server error: %v", err)
			}
		} else {
			if err := c.Server.ListenAndServe(); err != http.ErrServerClosed {
				log.Errorf("REST server error: %v", err)
			}
		}
	}()

	go func() {
		<-c.ctx.Done()
		log.Info("Shutting down the REST server...")
		c.Server.Shutdown(context.Background())
	}()

	return nil
}

// setupRouter configures the HTTP router with all endpoints
func (c *Controller) setupRouter() http.Handler {
	router := mux.NewRouter()

	router.Use(c.requestLogger)

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/stations", c.handlers.GetStations).Methods(http.MethodGet)
	api.HandleFunc("/stations/{id}", c.handlers.GetStation).Methods(http.MethodGet)
	api.HandleFunc("/stations/{id}/series", c.handlers.GetSeries).Methods(http.MethodGet)
	api.HandleFunc("/stations/{id}/heatdays", c.handlers.GetHeatDays).Methods(http.MethodGet)
	api.HandleFunc("/stations/{id}/summerdays", c.handlers.GetSummerDays).Methods(http.MethodGet)
	api.HandleFunc("/stations/{id}/median", c.handlers.GetYearlyMedian).Methods(http.MethodGet)
	api.HandleFunc("/stations/{id}/rainfall", c.handlers.GetMonthlyRainfall).Methods(http.MethodGet)
	api.HandleFunc("/stations/{id}/day", c.handlers.GetDayOverYears).Methods(http.MethodGet)
	api.HandleFunc("/stations/{id}/sunshine", c.handlers.GetSunshineFraction).Methods(http.MethodGet)
	api.HandleFunc("/stations/{id}/cache", c.handlers.InvalidateCache).Methods(http.MethodDelete)

	router.HandleFunc("/health", c.handlers.GetHealth).Methods(http.MethodGet)

	recovery := handlers.RecoveryHandler(handlers.RecoveryLogger(&recoveryLogger{c.logger}))
	cors := handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodDelete}),
	)
	return recovery(cors(router))
}

// requestLogger tags each request with an ID and logs it on completion.
func (c *Controller) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := uuid.NewString()
		w.Header().Set("X-Request-ID", requestID)

		start := time.Now()
		next.ServeHTTP(w, r)
		c.logger.Debugf("%s %s (request_id=%s) completed in %v",
			r.Method, r.URL.Path, requestID, time.Since(start))
	})
}

// recoveryLogger adapts the zap logger to gorilla's recovery handler.
type recoveryLogger struct {
	logger *zap.SugaredLogger
}

func (rl *recoveryLogger) Println(args ...interface{}) {
	rl.logger.Error(args...)
}
