package wsrouter

import (
	"context"
	"errors"
)

var ErrUnknownMessageType = errors.New("unknown message type")

type ctxKey int

const messageTypeKey ctxKey = iota

func GetMessageTypeFromCtx(ctx context.Context) string {
	messageType, ok := ctx.Value(messageTypeKey).(string)
	if !ok {
		return ""
	}

	return messageType
}
