package gateway

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"

	"github.com/nextlevelbuilder/goclaw/internal/agent"
	"github.com/nextlevelbuilder/goclaw/internal/worker"
	"github.com/nextlevelbuilder/goclaw/pkg/protocol"
)

// registerCoreMethods binds the core RPC surface directly: chat.send starts
// a fresh turn, turn.resume continues a suspended one, health/status are
// simple liveness checks, chat.abort cancels a session's in-flight turn, and
// session.create/session.list manage session membership. Further handlers can
// be registered against the same router via Server.Router().
func (s *Server) registerCoreMethods() {
	s.router.Register(protocol.MethodChatSend, s.handleChatSend)
	s.router.Register(protocol.MethodTurnResume, s.handleTurnResume)
	s.router.Register(protocol.MethodHealth, s.handleHealthRPC)
	s.router.Register(protocol.MethodHealthStatus, s.handleHealthRPC)
	s.router.Register(protocol.MethodChatAbort, s.handleChatAbort)
	s.router.Register(protocol.MethodSessionCreate, s.handleSessionCreate)
	s.router.Register(protocol.MethodSessionList, s.handleSessionList)
}

type sessionCreateParams struct {
	SessionID string `json:"session_id"`
}

// handleSessionCreate joins the calling client to sessionID (or a freshly
// generated one if none given).
func (s *Server) handleSessionCreate(ctx context.Context, client *Client, req *protocol.RequestFrame) {
	var params sessionCreateParams
	_ = decodeParams(req.Params, &params)
	sessionID := params.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	s.clientMgr.JoinSession(client.id, sessionID)
	client.sessionID = sessionID
	client.SendResponse(protocol.NewOKResponse(req.ID, map[string]interface{}{"session_id": sessionID}))
}

// handleSessionList reports the caller's session id and the number of
// connected operators and nodes across all sessions.
func (s *Server) handleSessionList(ctx context.Context, client *Client, req *protocol.RequestFrame) {
	ops := s.clientMgr.ListOperators()
	nodes := s.clientMgr.ListNodes()
	client.SendResponse(protocol.NewOKResponse(req.ID, map[string]interface{}{
		"session_id": client.sessionID,
		"operators":  len(ops),
		"nodes":      len(nodes),
	}))
}

type chatSendParams struct {
	SessionKey string `json:"session_key"`
	Message    string `json:"message"`
	Channel    string `json:"channel,omitempty"`
	ChatID     string `json:"chat_id,omitempty"`
}

func (s *Server) handleChatSend(ctx context.Context, client *Client, req *protocol.RequestFrame) {
	if s.worker == nil {
		client.SendResponse(protocol.NewErrorResponse(req.ID, protocol.ErrInternal, "worker not configured"))
		return
	}

	var params chatSendParams
	if err := decodeParams(req.Params, &params); err != nil || params.SessionKey == "" || params.Message == "" {
		client.SendResponse(protocol.NewErrorResponse(req.ID, protocol.ErrInvalidRequest, "session_key and message are required"))
		return
	}

	turnID := uuid.NewString()
	wreq := worker.Request{
		TurnID:    turnID,
		SessionID: params.SessionKey,
		Run: agent.RunRequest{
			SessionKey: params.SessionKey,
			Message:    params.Message,
			Channel:    params.Channel,
			ChatID:     params.ChatID,
			RunID:      turnID,
		},
	}

	result, err := s.worker.RunTurn(ctx, wreq)
	if yerr, ok := asYieldError(err); ok {
		client.SendResponse(protocol.NewOKResponse(req.ID, map[string]interface{}{
			"turn_id":      turnID,
			"yield_reason": yerr.Reason,
			"pending":      yerr.Pending,
		}))
		return
	}
	if err != nil {
		client.SendResponse(protocol.NewErrorResponse(req.ID, protocol.ErrInternal, err.Error()))
		return
	}

	client.SendResponse(protocol.NewOKResponse(req.ID, map[string]interface{}{
		"turn_id": turnID,
		"content": result.Content,
	}))
}

type turnResumeParams struct {
	TurnID     string `json:"turn_id"`
	SessionKey string `json:"session_key"`
	Answer     string `json:"answer"`
}

func (s *Server) handleTurnResume(ctx context.Context, client *Client, req *protocol.RequestFrame) {
	if s.worker == nil {
		client.SendResponse(protocol.NewErrorResponse(req.ID, protocol.ErrInternal, "worker not configured"))
		return
	}

	var params turnResumeParams
	if err := decodeParams(req.Params, &params); err != nil || params.TurnID == "" {
		client.SendResponse(protocol.NewErrorResponse(req.ID, protocol.ErrInvalidRequest, "turn_id is required"))
		return
	}

	result, err := s.worker.ResumeTurn(ctx, params.TurnID, params.SessionKey, params.Answer)
	if yerr, ok := asYieldError(err); ok {
		client.SendResponse(protocol.NewOKResponse(req.ID, map[string]interface{}{
			"turn_id":      params.TurnID,
			"yield_reason": yerr.Reason,
			"pending":      yerr.Pending,
		}))
		return
	}
	if err != nil {
		client.SendResponse(protocol.NewErrorResponse(req.ID, protocol.ErrInternal, err.Error()))
		return
	}

	client.SendResponse(protocol.NewOKResponse(req.ID, map[string]interface{}{
		"turn_id": params.TurnID,
		"content": result.Content,
	}))
}

type chatAbortParams struct {
	SessionKey string `json:"session_key"`
}

func (s *Server) handleChatAbort(ctx context.Context, client *Client, req *protocol.RequestFrame) {
	if s.worker == nil {
		client.SendResponse(protocol.NewErrorResponse(req.ID, protocol.ErrInternal, "worker not configured"))
		return
	}
	var params chatAbortParams
	if err := decodeParams(req.Params, &params); err != nil || params.SessionKey == "" {
		client.SendResponse(protocol.NewErrorResponse(req.ID, protocol.ErrInvalidRequest, "session_key is required"))
		return
	}
	cancelled := s.worker.Cancel(params.SessionKey)
	client.SendResponse(protocol.NewOKResponse(req.ID, map[string]interface{}{"cancelled": cancelled}))
}

func (s *Server) handleHealthRPC(ctx context.Context, client *Client, req *protocol.RequestFrame) {
	client.SendResponse(protocol.NewOKResponse(req.ID, map[string]interface{}{
		"status":   "ok",
		"protocol": protocol.ProtocolVersion,
	}))
}

func decodeParams(raw json.RawMessage, dst interface{}) error {
	if len(raw) == 0 {
		return errEmptyParams
	}
	return json.Unmarshal(raw, dst)
}

var errEmptyParams = errors.New("gateway: empty request params")

func asYieldError(err error) (*worker.YieldError, bool) {
	if err == nil {
		return nil, false
	}
	ye, ok := err.(*worker.YieldError)
	return ye, ok
}
