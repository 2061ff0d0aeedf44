package controller

import (
	"github.com/sharetube/together/internal/protocol"
	"github.com/sharetube/together/pkg/wsrouter"
)

func (c controller) getWSRouter() *wsrouter.WSRouter {
	mux := wsrouter.New()
	mux.Use(c.wsRequestIdWSMw(), c.loggerWSMw())

	// session
	wsrouter.Handle(mux, protocol.TypeJoin, c.handleJoin)
	wsrouter.Handle(mux, protocol.TypeLeave, c.handleLeave)
	wsrouter.Handle(mux, protocol.TypeHeartbeat, c.handleHeartbeat)

	// player
	wsrouter.Handle(mux, protocol.TypePlaybackIntent, c.handlePlaybackIntent)
	wsrouter.Handle(mux, protocol.TypeSync, c.handleSync)

	// profile
	wsrouter.Handle(mux, protocol.TypeUpdateProfile, c.handleUpdateProfile)

	return mux
}
