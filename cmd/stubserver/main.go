// Command stubserver is an in-memory stand-in for the marketplace backend,
// serving the auth and KYC endpoints the client consumes. Dev-only routes
// expose pending OTP codes and let you decide a KYC submission, so the full
// session flow can be driven locally.
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
)

func newRouter(h *handlers) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
	}).Methods("GET")

	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/auth/register/", h.register).Methods("POST")
	api.HandleFunc("/auth/resend-otp/", h.resendOTP).Methods("POST")
	api.HandleFunc("/auth/verify-otp/", h.verifyOTP).Methods("POST")
	api.HandleFunc("/auth/status/", h.status).Methods("GET")
	api.HandleFunc("/auth/kyc/submit/", h.submitKyc).Methods("POST")
	api.HandleFunc("/auth/password/reset/request/", h.requestPasswordReset).Methods("POST")
	api.HandleFunc("/auth/password/reset/confirm/", h.confirmPasswordReset).Methods("POST")

	r.HandleFunc("/dev/otp", h.devOTP).Methods("GET")
	r.HandleFunc("/dev/kyc/decide", h.devDecideKyc).Methods("POST")
	return r
}

func main() {
	addr := flag.String("addr", ":8000", "listen address")
	flag.Parse()

	env := os.Getenv("APP_ENV")
	h := &handlers{
		store:     newMemStore(),
		jwtSecret: []byte("stub-dev-secret"),
		devMode:   env != "production",
	}
	if !h.devMode {
		log.Printf("dev routes disabled (APP_ENV=%s)", env)
	}

	srv := &http.Server{
		Addr:              *addr,
		Handler:           newRouter(h),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Printf("stub backend listening on %s (base URL http://localhost%s/api/v1)", *addr, *addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("serve: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("shutting down stub backend...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("shutdown: %v", err)
	}
	log.Println("stub backend stopped")
}
