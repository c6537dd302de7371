package audit

import "context"

type clientInfoKey struct{}

// ClientInfo is request metadata recorded alongside audit entries.
type ClientInfo struct {
	IPAddress string
	UserAgent string
}

func WithClientInfo(ctx context.Context, info ClientInfo) context.Context {
	return context.WithValue(ctx, clientInfoKey{}, info)
}

func ClientInfoFrom(ctx context.Context) ClientInfo {
	if v, ok := ctx.Value(clientInfoKey{}).(ClientInfo); ok {
		return v
	}
	return ClientInfo{}
}
