package wsrouter

import (
	"context"
	"encoding/json"

	"github.com/gorilla/websocket"
)

type message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type HandlerFunc func(ctx context.Context, conn *websocket.Conn, payload json.RawMessage) error

type Middleware func(next HandlerFunc) HandlerFunc

type ErrorHandlerFunc func(ctx context.Context, conn *websocket.Conn, err error)

type WSRouter struct {
	routes       map[string]HandlerFunc
	middlewares  []Middleware
	errorHandler ErrorHandlerFunc
}

func New() *WSRouter {
	return &WSRouter{routes: make(map[string]HandlerFunc)}
}

// Use appends middlewares applied to every handler, outermost first.
// Must be called before Handle.
func (r *WSRouter) Use(middlewares ...Middleware) {
	r.middlewares = append(r.middlewares, middlewares...)
}

func (r *WSRouter) Handle(messageType string, handler HandlerFunc) {
	for i := len(r.middlewares) - 1; i >= 0; i-- {
		handler = r.middlewares[i](handler)
	}

	r.routes[messageType] = handler
}

// SetErrorHandler registers the callback invoked when a handler returns
// an error. Without one, handler errors are silently dropped.
func (r *WSRouter) SetErrorHandler(errorHandler ErrorHandlerFunc) {
	r.errorHandler = errorHandler
}

// ServeConn reads messages from conn until it fails, dispatching each
// one to its registered handler. The read error is returned.
func (r *WSRouter) ServeConn(ctx context.Context, conn *websocket.Conn) error {
	for {
		var msg message
		if err := conn.ReadJSON(&msg); err != nil {
			return err
		}

		handler, exists := r.routes[msg.Type]
		if !exists {
			if r.errorHandler != nil {
				r.errorHandler(ctx, conn, ErrUnknownMessageType)
			}
			continue
		}

		msgCtx := context.WithValue(ctx, messageTypeKey, msg.Type)
		if err := handler(msgCtx, conn, msg.Payload); err != nil {
			if r.errorHandler != nil {
				r.errorHandler(msgCtx, conn, err)
			}
		}
	}
}
