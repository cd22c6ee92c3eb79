package rpc

import (
	"context"
	"errors"
	"net"
	"net/rpc"
	"time"

	"github.com/wfunc/gameengine/logger"
	"github.com/wfunc/gameengine/models"
	"github.com/wfunc/gameengine/store"
)

// Server manages the RPC listener.
type Server struct {
	listener net.Listener
	address  string
}

// NewServer creates a new RPC server.
func NewServer(addr string) (*Server, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Server{
		listener: listener,
		address:  addr,
	}, nil
}

// Start begins listening for RPC requests.
func (s *Server) Start() {
	logger.Log.Infof("RPC server listening on %s", s.address)
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			// Check if the error is due to the listener being closed.
			if _, ok := err.(*net.OpError); ok {
				logger.Log.Info("RPC server listener closed.")
				return
			}
			logger.Log.Errorf("RPC server accept error: %v", err)
			continue
		}
		go rpc.ServeConn(conn)
	}
}

// Stop closes the RPC listener.
func (s *Server) Stop() {
	if s.listener != nil {
		logger.Log.Info("Stopping RPC server.")
		s.listener.Close()
	}
}

// AdminService exposes room state inspection over net/rpc for
// operators: fetch, probe and evict individual rooms.
type AdminService struct {
	store store.Store
}

// NewAdminService creates a new AdminService.
func NewAdminService(s store.Store) *AdminService {
	return &AdminService{store: s}
}

type RoomArgs struct {
	RoomID string
}

type GetRoomReply struct {
	State *models.RoomState
	Found bool
}

type ExistsReply struct {
	Exists bool
}

// GetRoomState returns the current state of a room, Found=false when
// the room has no live entry.
func (a *AdminService) GetRoomState(args *RoomArgs, reply *GetRoomReply) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	state, err := a.store.Get(ctx, args.RoomID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			reply.Found = false
			return nil
		}
		return err
	}
	reply.State = state
	reply.Found = true
	return nil
}

// RoomExists reports whether a room currently has stored state.
func (a *AdminService) RoomExists(args *RoomArgs, reply *ExistsReply) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	exists, err := a.store.Exists(ctx, args.RoomID)
	if err != nil {
		return err
	}
	reply.Exists = exists
	return nil
}

// DeleteRoom evicts a room's state immediately, ahead of its TTL.
func (a *AdminService) DeleteRoom(args *RoomArgs, reply *ExistsReply) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := a.store.Delete(ctx, args.RoomID); err != nil {
		return err
	}
	logger.Log.Infof("Deleted room %s via admin RPC", args.RoomID)
	reply.Exists = false
	return nil
}
