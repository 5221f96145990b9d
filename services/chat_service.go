package services

import (
	"chat-hub/contract"
	"chat-hub/domain"
)

type IChatService interface {
	History() ([]domain.ChatMessage, error)
	Dispatch(cmd domain.Command)
	Connect(handle domain.HandleID, sink contract.EventSink)
}

// ChatService is the thin facade transports talk to: reads go straight to
// the store, everything that mutates or broadcasts goes through the router.
type ChatService struct {
	router contract.IRouter
	store  contract.IMessageStore
}

func NewChatService(router contract.IRouter, store contract.IMessageStore) *ChatService {
	return &ChatService{router: router, store: store}
}

func (s *ChatService) History() ([]domain.ChatMessage, error) {
	return s.store.ListAll()
}

func (s *ChatService) Dispatch(cmd domain.Command) {
	s.router.Dispatch(cmd)
}

func (s *ChatService) Connect(handle domain.HandleID, sink contract.EventSink) {
	s.router.Connect(handle, sink)
}
