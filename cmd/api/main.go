// Command api runs the campus REST API: course and student CRUD backed by
// MongoDB with a Redis read-through cache.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/edustack/campus-api/internal/backends"
	"github.com/edustack/campus-api/internal/cache"
	"github.com/edustack/campus-api/internal/config"
	"github.com/edustack/campus-api/internal/domain/course"
	"github.com/edustack/campus-api/internal/domain/student"
	"github.com/edustack/campus-api/internal/httpapi"
	"github.com/edustack/campus-api/internal/middleware"
	"github.com/edustack/campus-api/internal/services/courses"
	"github.com/edustack/campus-api/internal/services/students"
	"github.com/edustack/campus-api/internal/storage/mongodb"
	"github.com/edustack/campus-api/pkg/logger"
)

const shutdownGrace = 10 * time.Second

func main() {
	log := logger.NewDefault("api")

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Error("invalid configuration")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	be, err := backends.Connect(ctx, cfg, log.WithField("component", "backends"))
	if err != nil {
		log.WithError(err).Error("dependency bring-up failed")
		os.Exit(1)
	}

	courseStore := mongodb.NewCollection[course.Course](be.DB, "courses")
	studentStore := mongodb.NewCollection[student.Student](be.DB, "students")
	redisCache := cache.NewRedis(be.Redis)

	courseSvc := courses.New(courseStore, studentStore, redisCache, log.WithField("component", "courses"))
	studentSvc := students.New(studentStore, courseSvc, redisCache, log.WithField("component", "students"))

	router := httpapi.NewRouter(courseSvc, studentSvc, httpapi.Options{
		AllowedOrigins: cfg.HTTP.AllowedOrigins,
		RateLimit:      middleware.NewRateLimiter(cfg.HTTP.RateLimitRPS, cfg.HTTP.RateLimitBurst),
	}, log.WithField("component", "httpapi"))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", srv.Addr).Info("listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("server failed")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("server shutdown incomplete")
	}
	be.Close(shutdownCtx)
	log.Info("stopped")
}
