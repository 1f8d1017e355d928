package service

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	apperrors "github.com/utafrali/videohub/pkg/errors"
)

// Operation labels for account_auth_attempts_total.
const (
	opRegister       = "register"
	opLogin          = "login"
	opRefresh        = "refresh"
	opLogout         = "logout"
	opChangePassword = "change_password"
	opAuthenticate   = "authenticate"
)

var authAttempts = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "account_auth_attempts_total",
		Help: "Authentication and session operations by outcome",
	},
	[]string{"operation", "result"},
)

// observe counts one attempt. Client-side failures are "rejected"; store,
// hashing or signing failures are "error".
func observe(operation string, err error) {
	authAttempts.WithLabelValues(operation, resultLabel(err)).Inc()
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, apperrors.ErrInternal):
		return "error"
	default:
		return "rejected"
	}
}
