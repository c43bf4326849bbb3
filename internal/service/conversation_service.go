package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"profitops-go/internal/model"
	"profitops-go/internal/repository"
	"profitops-go/pkg/log"
)

var (
	ErrEmptyName            = errors.New("el nombre de la conversación no puede estar vacío")
	ErrConversationNotFound = errors.New("conversación no encontrada")
)

// Uploader 上传导出文件并返回下载地址。
type Uploader interface {
	Upload(ctx context.Context, objectName string, data []byte, contentType string) (string, error)
}

// Export 是一次 Markdown 导出的结果：配置了对象存储时带 URL，否则带内容。
type Export struct {
	FileName string `json:"file_name"`
	URL      string `json:"url,omitempty"`
	Markdown string `json:"markdown,omitempty"`
}

// ConversationService 定义了命名会话的操作接口。
type ConversationService interface {
	List(ctx context.Context) []model.SavedConversation
	Get(ctx context.Context, id string) (model.SavedConversation, error)
	// SaveSession 把 session 当前对话以 name 保存为新记录。
	SaveSession(ctx context.Context, sessionID, name string) (model.SavedConversation, error)
	// UpdateFromSession 用 session 当前对话覆盖已保存的记录。
	UpdateFromSession(ctx context.Context, id, sessionID string) (model.SavedConversation, error)
	Delete(ctx context.Context, id string)
	// LoadIntoSession 用已保存的消息替换 session 的对话。
	LoadIntoSession(ctx context.Context, id, sessionID string) ([]model.Message, error)
	ExportMarkdown(ctx context.Context, id string) (Export, error)
}

type conversationService struct {
	repo     repository.ConversationRepository
	chat     ChatService
	uploader Uploader
	activity ActivityRecorder
}

// NewConversationService 创建一个新的 ConversationService 实例。uploader 可以为 nil。
func NewConversationService(repo repository.ConversationRepository, chat ChatService, uploader Uploader, activity ActivityRecorder) ConversationService {
	if activity == nil {
		activity = NopRecorder{}
	}
	return &conversationService{repo: repo, chat: chat, uploader: uploader, activity: activity}
}

func (s *conversationService) List(ctx context.Context) []model.SavedConversation {
	return s.repo.List(ctx)
}

func (s *conversationService) Get(ctx context.Context, id string) (model.SavedConversation, error) {
	conv, ok := s.repo.Get(ctx, id)
	if !ok {
		return model.SavedConversation{}, ErrConversationNotFound
	}
	return conv, nil
}

func (s *conversationService) SaveSession(ctx context.Context, sessionID, name string) (model.SavedConversation, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return model.SavedConversation{}, ErrEmptyName
	}
	msgs := s.chat.Transcript(ctx, sessionID)
	conv := s.repo.Save(ctx, name, model.ToSaved(msgs))
	log.Infof("Conversación guardada: id=%s, mensajes=%d", conv.ID, len(conv.Mensajes))
	s.activity.Record(ctx, model.Activity{
		Kind: model.ActivityConversationSaved, SessionID: sessionID,
		Subject: name, Detail: conv.ID, Success: true,
	})
	return conv, nil
}

func (s *conversationService) UpdateFromSession(ctx context.Context, id, sessionID string) (model.SavedConversation, error) {
	msgs := s.chat.Transcript(ctx, sessionID)
	if !s.repo.Update(ctx, id, model.ToSaved(msgs)) {
		return model.SavedConversation{}, ErrConversationNotFound
	}
	conv, ok := s.repo.Get(ctx, id)
	if !ok {
		// 存储不可用时 Update 之后仍可能读不到
		return model.SavedConversation{}, ErrConversationNotFound
	}
	s.activity.Record(ctx, model.Activity{
		Kind: model.ActivityConversationUpdated, SessionID: sessionID,
		Subject: conv.Nombre, Detail: conv.ID, Success: true,
	})
	return conv, nil
}

func (s *conversationService) Delete(ctx context.Context, id string) {
	s.repo.Delete(ctx, id)
	s.activity.Record(ctx, model.Activity{Kind: model.ActivityConversationDeleted, Detail: id, Success: true})
}

func (s *conversationService) LoadIntoSession(ctx context.Context, id, sessionID string) ([]model.Message, error) {
	conv, ok := s.repo.Get(ctx, id)
	if !ok {
		return nil, ErrConversationNotFound
	}
	return s.chat.Replace(ctx, sessionID, model.FromSaved(conv.Mensajes)), nil
}

func (s *conversationService) ExportMarkdown(ctx context.Context, id string) (Export, error) {
	conv, ok := s.repo.Get(ctx, id)
	if !ok {
		return Export{}, ErrConversationNotFound
	}
	md := RenderMarkdown(conv)
	exp := Export{FileName: conv.ID + ".md"}
	if s.uploader == nil {
		exp.Markdown = md
		return exp, nil
	}
	url, err := s.uploader.Upload(ctx, "conversations/"+exp.FileName, []byte(md), "text/markdown; charset=utf-8")
	if err != nil {
		return Export{}, fmt.Errorf("failed to upload export: %w", err)
	}
	exp.URL = url
	return exp, nil
}

// RenderMarkdown 把已保存的会话渲染为 Markdown。
func RenderMarkdown(conv model.SavedConversation) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", conv.Nombre)
	fmt.Fprintf(&b, "_Fecha: %s_\n", conv.Fecha)
	for _, m := range conv.Mensajes {
		speaker := "Coach"
		if m.Role == model.RoleUser {
			speaker = "Tú"
		}
		b.WriteString("\n")
		if m.Timestamp != "" {
			fmt.Fprintf(&b, "**%s** (%s):\n\n", speaker, m.Timestamp)
		} else {
			fmt.Fprintf(&b, "**%s**:\n\n", speaker)
		}
		b.WriteString(m.Content)
		b.WriteString("\n")
	}
	return b.String()
}
