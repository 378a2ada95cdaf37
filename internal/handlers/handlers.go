package handlers

import (
	"log/slog"

	"github.com/parlorchat/parlor/internal/auth"
	"github.com/parlorchat/parlor/internal/chat"
	"github.com/parlorchat/parlor/internal/config"
	"github.com/parlorchat/parlor/internal/push"
	"github.com/parlorchat/parlor/internal/turn"

	"github.com/gorilla/websocket"
)

type Handlers struct {
	config     *config.Config
	turnServer *turn.Server
	chat       *chat.Service
	hub        *WSHub
	invites    *auth.TokenService
	push       *push.Notifier
	wsUpgrader websocket.Upgrader
	logger     *slog.Logger
}

func New(
	cfg *config.Config,
	turnServer *turn.Server,
	chatService *chat.Service,
	hub *WSHub,
	invites *auth.TokenService,
	notifier *push.Notifier,
	upgrader websocket.Upgrader,
	logger *slog.Logger,
) *Handlers {
	return &Handlers{
		config:     cfg,
		turnServer: turnServer,
		chat:       chatService,
		hub:        hub,
		invites:    invites,
		push:       notifier,
		wsUpgrader: upgrader,
		logger:     logger,
	}
}
