package provider

import (
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ClassifyGRPC wraps an error returned by a gRPC-fronted provider into a
// classified [*Error]. Custom [Client] implementations backed by gRPC
// transports should pass every invocation error through here so the retry
// layer sees the right kind.
func ClassifyGRPC(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return &Error{Kind: KindTransientNetwork, Err: err}
	}

	kind := KindPermanent
	switch st.Code() {
	case codes.Unavailable, codes.ResourceExhausted, codes.Aborted:
		kind = KindTransientNetwork
	case codes.DeadlineExceeded:
		kind = KindTransientTimeout
	}
	return &Error{
		Kind:   kind,
		Status: int(st.Code()),
		Msg:    st.Message(),
		Err:    err,
	}
}
