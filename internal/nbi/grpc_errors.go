package nbi

import (
	"errors"

	"github.com/dimalipin/netviz/core"
	"github.com/dimalipin/netviz/internal/datagram"
	"github.com/dimalipin/netviz/internal/ipheader"
	"github.com/dimalipin/netviz/kb"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var (
	// ErrNotFound is a package-level sentinel used when an entity cannot be located.
	ErrNotFound = errors.New("not found")
	// ErrInvalidArgument is a package-level sentinel used for malformed requests.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrNotReady is returned when the service has no simulation attached.
	ErrNotReady = errors.New("simulation not ready")
)

// ToStatusError maps simulator errors onto gRPC status codes.
func ToStatusError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}

	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, kb.ErrHostNotFound),
		errors.Is(err, kb.ErrGatewayNotFound),
		errors.Is(err, kb.ErrSubnetNotFound),
		errors.Is(err, ipheader.ErrUnknownField):
		return status.Error(codes.NotFound, err.Error())

	case errors.Is(err, ErrInvalidArgument),
		errors.Is(err, core.ErrSameHost),
		errors.Is(err, core.ErrInvalidTopology),
		errors.Is(err, datagram.ErrNotIPv4),
		errors.Is(err, datagram.ErrMalformed):
		return status.Error(codes.InvalidArgument, err.Error())

	case errors.Is(err, ErrNotReady),
		errors.Is(err, core.ErrNoRoute):
		return status.Error(codes.FailedPrecondition, err.Error())

	case errors.Is(err, kb.ErrSubnetExists),
		errors.Is(err, kb.ErrHostExists),
		errors.Is(err, kb.ErrGatewayExists):
		return status.Error(codes.AlreadyExists, err.Error())

	default:
		return status.Error(codes.Internal, err.Error())
	}
}
