package usecase_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/goerr/v2"
	"github.com/soc-lab/kestrel/pkg/domain/model"
	"github.com/soc-lab/kestrel/pkg/domain/types"
	"github.com/soc-lab/kestrel/pkg/repository"
	"github.com/soc-lab/kestrel/pkg/service/llm"
	"github.com/soc-lab/kestrel/pkg/usecase"
)

type mockWorkflowClient struct {
	CallAgentFunc func(ctx context.Context, req *model.WorkflowRequest) (*model.WorkflowReply, error)
	TriggerFunc   func(ctx context.Context, req *model.WorkflowRequest) (*model.WorkflowReply, error)
	agentCalls    int
	triggerCalls  int
}

func (m *mockWorkflowClient) Ping(ctx context.Context) bool { return true }

func (m *mockWorkflowClient) CallAgent(ctx context.Context, req *model.WorkflowRequest) (*model.WorkflowReply, error) {
	m.agentCalls++
	if m.CallAgentFunc != nil {
		return m.CallAgentFunc(ctx, req)
	}
	return &model.WorkflowReply{Reply: "ok"}, nil
}

func (m *mockWorkflowClient) Trigger(ctx context.Context, req *model.WorkflowRequest) (*model.WorkflowReply, error) {
	m.triggerCalls++
	if m.TriggerFunc != nil {
		return m.TriggerFunc(ctx, req)
	}
	return &model.WorkflowReply{Reply: "triggered"}, nil
}

type mockIDSClient struct {
	LogsFunc     func(ctx context.Context, limit int) ([]*model.IDSLog, error)
	LogsByIPFunc func(ctx context.Context, ip string) ([]*model.IDSLog, error)
}

func (m *mockIDSClient) Start(ctx context.Context) error                   { return nil }
func (m *mockIDSClient) Stop(ctx context.Context) error                    { return nil }
func (m *mockIDSClient) Status(ctx context.Context) (*model.IDSStatus, error) {
	return &model.IDSStatus{}, nil
}
func (m *mockIDSClient) Logs(ctx context.Context, limit int) ([]*model.IDSLog, error) {
	if m.LogsFunc != nil {
		return m.LogsFunc(ctx, limit)
	}
	return nil, nil
}
func (m *mockIDSClient) LogsByIP(ctx context.Context, ip string) ([]*model.IDSLog, error) {
	if m.LogsByIPFunc != nil {
		return m.LogsByIPFunc(ctx, ip)
	}
	return nil, nil
}
func (m *mockIDSClient) Alerts(ctx context.Context) ([]*model.IDSAlert, error) { return nil, nil }

type mockEngineHealth struct {
	marked []types.Engine
}

func (m *mockEngineHealth) MarkEngineDown(engine types.Engine) {
	m.marked = append(m.marked, engine)
}

func newChatLLM(reply string) *llm.Service {
	return llm.New(&mockLLMClient{
		GenerateResponseFunc: func(ctx context.Context, prompt string) (string, error) {
			return reply, nil
		},
	})
}

func TestSendMessageRouting(t *testing.T) {
	ctx := context.Background()

	t.Run("soar engine calls only the workflow", func(t *testing.T) {
		workflow := &mockWorkflowClient{
			CallAgentFunc: func(ctx context.Context, req *model.WorkflowRequest) (*model.WorkflowReply, error) {
				gt.Equal(t, req.Message, "block this host")
				return &model.WorkflowReply{Reply: "host blocked"}, nil
			},
		}
		llmCalls := 0
		llmService := llm.New(&mockLLMClient{
			GenerateResponseFunc: func(ctx context.Context, prompt string) (string, error) {
				llmCalls++
				return "should not be used", nil
			},
		})
		uc := usecase.NewChat(repository.NewMemory(), llmService, workflow, nil, nil, nil)

		reply, err := uc.SendMessage(ctx, "", "block this host", types.EngineSOAR)
		gt.NoError(t, err).Required()
		gt.S(t, reply.Content).Contains("host blocked")
		gt.S(t, reply.Content).Contains("[SOAR Engine]")
		gt.Equal(t, workflow.agentCalls, 1)
		gt.Equal(t, llmCalls, 0)
	})

	t.Run("ai engine never touches the workflow", func(t *testing.T) {
		workflow := &mockWorkflowClient{}
		uc := usecase.NewChat(repository.NewMemory(), newChatLLM("Here is my analysis."), workflow, nil, nil, nil)

		reply, err := uc.SendMessage(ctx, "", "what does this alert mean", types.EngineAI)
		gt.NoError(t, err).Required()
		gt.S(t, reply.Content).Contains("Here is my analysis.")
		gt.S(t, reply.Content).Contains("[AI Engine]")
		gt.Equal(t, workflow.agentCalls, 0)
		gt.Equal(t, workflow.triggerCalls, 0)
	})

	t.Run("soar failure yields canned reply, not error", func(t *testing.T) {
		workflow := &mockWorkflowClient{
			CallAgentFunc: func(ctx context.Context, req *model.WorkflowRequest) (*model.WorkflowReply, error) {
				return nil, goerr.New("proxy down")
			},
		}
		uc := usecase.NewChat(repository.NewMemory(), nil, workflow, nil, nil, nil)

		reply, err := uc.SendMessage(ctx, "", "hello", types.EngineSOAR)
		gt.NoError(t, err).Required()
		gt.S(t, reply.Content).Contains("The SOAR Engine is currently unavailable")
	})

	t.Run("missing workflow yields canned reply", func(t *testing.T) {
		uc := usecase.NewChat(repository.NewMemory(), nil, nil, nil, nil, nil)

		reply, err := uc.SendMessage(ctx, "", "hello", types.EngineSOAR)
		gt.NoError(t, err).Required()
		gt.S(t, reply.Content).Contains("The SOAR Engine is currently unavailable")
	})

	t.Run("unconfigured llm yields canned ai reply", func(t *testing.T) {
		uc := usecase.NewChat(repository.NewMemory(), nil, &mockWorkflowClient{}, nil, nil, nil)

		reply, err := uc.SendMessage(ctx, "", "hello", types.EngineAI)
		gt.NoError(t, err).Required()
		gt.S(t, reply.Content).Contains("The AI Engine is currently unavailable")
	})

	t.Run("empty workflow reply gets a placeholder", func(t *testing.T) {
		workflow := &mockWorkflowClient{
			CallAgentFunc: func(ctx context.Context, req *model.WorkflowRequest) (*model.WorkflowReply, error) {
				return &model.WorkflowReply{}, nil
			},
		}
		uc := usecase.NewChat(repository.NewMemory(), nil, workflow, nil, nil, nil)

		reply, err := uc.SendMessage(ctx, "", "hello", types.EngineSOAR)
		gt.NoError(t, err).Required()
		gt.S(t, reply.Content).Contains("The workflow completed without a reply.")
	})

	t.Run("empty message is rejected", func(t *testing.T) {
		uc := usecase.NewChat(repository.NewMemory(), nil, &mockWorkflowClient{}, nil, nil, nil)
		_, err := uc.SendMessage(ctx, "", "   ", types.EngineSOAR)
		gt.Error(t, err)
	})

	t.Run("unknown engine is rejected", func(t *testing.T) {
		uc := usecase.NewChat(repository.NewMemory(), nil, &mockWorkflowClient{}, nil, nil, nil)
		_, err := uc.SendMessage(ctx, "", "hello", types.Engine("quantum"))
		gt.Error(t, err)
	})
}

func TestSendMessageMarksEngineDown(t *testing.T) {
	ctx := context.Background()

	t.Run("soar call failure is reported", func(t *testing.T) {
		workflow := &mockWorkflowClient{
			CallAgentFunc: func(ctx context.Context, req *model.WorkflowRequest) (*model.WorkflowReply, error) {
				return nil, goerr.New("proxy down")
			},
		}
		health := &mockEngineHealth{}
		uc := usecase.NewChat(repository.NewMemory(), nil, workflow, nil, health, nil)

		_, err := uc.SendMessage(ctx, "", "hello", types.EngineSOAR)
		gt.NoError(t, err).Required()
		gt.A(t, health.marked).Length(1)
		gt.Equal(t, health.marked[0], types.EngineSOAR)
	})

	t.Run("ai call failure is reported", func(t *testing.T) {
		llmService := llm.New(&mockLLMClient{
			GenerateResponseFunc: func(ctx context.Context, prompt string) (string, error) {
				return "", goerr.New("model overloaded")
			},
		})
		health := &mockEngineHealth{}
		uc := usecase.NewChat(repository.NewMemory(), llmService, &mockWorkflowClient{}, nil, health, nil)

		_, err := uc.SendMessage(ctx, "", "hello", types.EngineAI)
		gt.NoError(t, err).Required()
		gt.A(t, health.marked).Length(1)
		gt.Equal(t, health.marked[0], types.EngineAI)
	})

	t.Run("successful dispatch reports nothing", func(t *testing.T) {
		health := &mockEngineHealth{}
		uc := usecase.NewChat(repository.NewMemory(), nil, &mockWorkflowClient{}, nil, health, nil)

		_, err := uc.SendMessage(ctx, "", "hello", types.EngineSOAR)
		gt.NoError(t, err).Required()
		gt.A(t, health.marked).Length(0)
	})
}

func TestSendMessageConversation(t *testing.T) {
	ctx := context.Background()

	t.Run("auto-creates a conversation from the first message", func(t *testing.T) {
		repo := repository.NewMemory()
		uc := usecase.NewChat(repo, nil, &mockWorkflowClient{}, nil, nil, nil)

		reply, err := uc.SendMessage(ctx, "", "investigate host 10.0.0.5", types.EngineSOAR)
		gt.NoError(t, err).Required()

		convs, err := repo.ListConversations(ctx)
		gt.NoError(t, err).Required()
		gt.A(t, convs).Length(1)
		gt.Equal(t, convs[0].ID, reply.ConversationID)
		gt.Equal(t, convs[0].Title, "investigate host 10.0.0.5...")
		gt.Equal(t, convs[0].MessageCount, 2)

		messages, err := uc.Messages(ctx, convs[0].ID)
		gt.NoError(t, err).Required()
		gt.A(t, messages).Length(2)
		gt.Equal(t, messages[0].Sender, types.SenderUser)
		gt.Equal(t, messages[1].Sender, types.SenderAssistant)
	})

	t.Run("titles come from the llm when configured", func(t *testing.T) {
		repo := repository.NewMemory()
		uc := usecase.NewChat(repo, newChatLLM("Host Investigation"), &mockWorkflowClient{}, nil, nil, nil)

		_, err := uc.SendMessage(ctx, "", "investigate host 10.0.0.5", types.EngineSOAR)
		gt.NoError(t, err).Required()

		convs, err := repo.ListConversations(ctx)
		gt.NoError(t, err).Required()
		gt.A(t, convs).Length(1)
		gt.Equal(t, convs[0].Title, "Host Investigation")
	})

	t.Run("existing conversation accumulates messages", func(t *testing.T) {
		repo := repository.NewMemory()
		uc := usecase.NewChat(repo, nil, &mockWorkflowClient{}, nil, nil, nil)

		conv, err := uc.CreateConversation(ctx, "Triage", "", "")
		gt.NoError(t, err).Required()

		_, err = uc.SendMessage(ctx, conv.ID, "first", types.EngineSOAR)
		gt.NoError(t, err).Required()
		_, err = uc.SendMessage(ctx, conv.ID, "second", types.EngineSOAR)
		gt.NoError(t, err).Required()

		updated, err := uc.GetConversation(ctx, conv.ID)
		gt.NoError(t, err).Required()
		gt.Equal(t, updated.MessageCount, 4)
	})

	t.Run("unknown conversation ID is an error", func(t *testing.T) {
		uc := usecase.NewChat(repository.NewMemory(), nil, &mockWorkflowClient{}, nil, nil, nil)
		_, err := uc.SendMessage(ctx, "missing", "hello", types.EngineSOAR)
		gt.Error(t, err)
		gt.True(t, errors.Is(err, model.ErrConversationNotFound))
	})

	t.Run("stored user message keeps original text when enriched", func(t *testing.T) {
		repo := repository.NewMemory()
		ids := &mockIDSClient{
			LogsByIPFunc: func(ctx context.Context, ip string) ([]*model.IDSLog, error) {
				gt.Equal(t, ip, "10.0.0.5")
				return []*model.IDSLog{{
					Timestamp:     time.Now(),
					SourceIP:      "10.0.0.5",
					DestinationIP: "192.168.1.1",
					Protocol:      "TCP",
					Message:       "SYN flood suspected",
				}}, nil
			},
		}
		var dispatched string
		workflow := &mockWorkflowClient{
			CallAgentFunc: func(ctx context.Context, req *model.WorkflowRequest) (*model.WorkflowReply, error) {
				dispatched = req.Message
				return &model.WorkflowReply{Reply: "reviewed"}, nil
			},
		}
		uc := usecase.NewChat(repo, nil, workflow, ids, nil, nil)

		reply, err := uc.SendMessage(ctx, "", "show logs for 10.0.0.5", types.EngineSOAR)
		gt.NoError(t, err).Required()
		gt.S(t, dispatched).Contains("Recent sensor logs:")
		gt.S(t, dispatched).Contains("SYN flood suspected")

		messages, err := uc.Messages(ctx, reply.ConversationID)
		gt.NoError(t, err).Required()
		gt.Equal(t, messages[0].Content, "show logs for 10.0.0.5")
	})

	t.Run("enrichment failure dispatches the bare message", func(t *testing.T) {
		ids := &mockIDSClient{
			LogsFunc: func(ctx context.Context, limit int) ([]*model.IDSLog, error) {
				return nil, goerr.New("sensor offline")
			},
		}
		var dispatched string
		workflow := &mockWorkflowClient{
			CallAgentFunc: func(ctx context.Context, req *model.WorkflowRequest) (*model.WorkflowReply, error) {
				dispatched = req.Message
				return &model.WorkflowReply{Reply: "ok"}, nil
			},
		}
		uc := usecase.NewChat(repository.NewMemory(), nil, workflow, ids, nil, nil)

		_, err := uc.SendMessage(ctx, "", "show recent traffic", types.EngineSOAR)
		gt.NoError(t, err).Required()
		gt.Equal(t, dispatched, "show recent traffic")
	})

	t.Run("non log queries skip the sensor", func(t *testing.T) {
		ids := &mockIDSClient{
			LogsFunc: func(ctx context.Context, limit int) ([]*model.IDSLog, error) {
				t.Fatal("sensor must not be queried")
				return nil, nil
			},
		}
		uc := usecase.NewChat(repository.NewMemory(), nil, &mockWorkflowClient{}, ids, nil, nil)

		_, err := uc.SendMessage(ctx, "", "what is our incident count", types.EngineSOAR)
		gt.NoError(t, err).Required()
	})
}

func TestHandleAction(t *testing.T) {
	ctx := context.Background()

	setup := func(workflow *mockWorkflowClient) (*usecase.Chat, types.ConversationID) {
		repo := repository.NewMemory()
		uc := usecase.NewChat(repo, nil, workflow, nil, nil, nil)
		conv, err := uc.CreateConversation(ctx, "Triage", "", "")
		gt.NoError(t, err).Required()
		return uc, conv.ID
	}

	t.Run("self enhance triggers the workflow", func(t *testing.T) {
		workflow := &mockWorkflowClient{
			TriggerFunc: func(ctx context.Context, req *model.WorkflowRequest) (*model.WorkflowReply, error) {
				gt.Equal(t, req.Action, "tune-detection-rules")
				gt.Equal(t, req.Data["kind"], "self_enhance")
				return &model.WorkflowReply{Reply: "rules updated"}, nil
			},
		}
		uc, convID := setup(workflow)

		msg, err := uc.HandleAction(ctx, convID, model.MessageAction{
			Type:  "self_enhance",
			Value: "tune-detection-rules",
		})
		gt.NoError(t, err).Required()
		gt.S(t, msg.Content).Contains("rules updated")
		gt.S(t, msg.Content).Contains("[SOAR Engine]")
		gt.Equal(t, workflow.triggerCalls, 1)
	})

	t.Run("option re-enters the message pipeline", func(t *testing.T) {
		workflow := &mockWorkflowClient{
			CallAgentFunc: func(ctx context.Context, req *model.WorkflowRequest) (*model.WorkflowReply, error) {
				gt.Equal(t, req.Message, "Block the source IP")
				return &model.WorkflowReply{Reply: "blocked"}, nil
			},
		}
		uc, convID := setup(workflow)

		msg, err := uc.HandleAction(ctx, convID, model.MessageAction{
			Type:  "option",
			Value: "Block the source IP",
		})
		gt.NoError(t, err).Required()
		gt.S(t, msg.Content).Contains("blocked")
		gt.Equal(t, workflow.agentCalls, 1)
		gt.Equal(t, workflow.triggerCalls, 0)
	})

	t.Run("workflow action fires the webhook", func(t *testing.T) {
		workflow := &mockWorkflowClient{
			TriggerFunc: func(ctx context.Context, req *model.WorkflowRequest) (*model.WorkflowReply, error) {
				return &model.WorkflowReply{}, nil
			},
		}
		uc, convID := setup(workflow)

		msg, err := uc.HandleAction(ctx, convID, model.MessageAction{
			Type:  "workflow",
			Value: "isolate-host",
		})
		gt.NoError(t, err).Required()
		gt.S(t, msg.Content).Contains("Done.")
	})

	t.Run("unknown action type is rejected", func(t *testing.T) {
		uc, convID := setup(&mockWorkflowClient{})

		_, err := uc.HandleAction(ctx, convID, model.MessageAction{
			Type:  "teleport",
			Value: "x",
		})
		gt.Error(t, err)
		gt.True(t, errors.Is(err, model.ErrUnknownAction))
	})
}

func TestPreferredEngine(t *testing.T) {
	ctx := context.Background()

	t.Run("defaults to soar", func(t *testing.T) {
		uc := usecase.NewChat(repository.NewMemory(), nil, nil, nil, nil, nil)
		gt.Equal(t, uc.PreferredEngine(ctx), types.EngineSOAR)
	})

	t.Run("persists a valid choice", func(t *testing.T) {
		uc := usecase.NewChat(repository.NewMemory(), nil, nil, nil, nil, nil)
		gt.NoError(t, uc.SetPreferredEngine(ctx, types.EngineAI))
		gt.Equal(t, uc.PreferredEngine(ctx), types.EngineAI)
	})

	t.Run("rejects unknown engines", func(t *testing.T) {
		uc := usecase.NewChat(repository.NewMemory(), nil, nil, nil, nil, nil)
		gt.Error(t, uc.SetPreferredEngine(ctx, types.Engine("quantum")))
	})

	t.Run("empty engine on send uses the preference", func(t *testing.T) {
		workflow := &mockWorkflowClient{}
		uc := usecase.NewChat(repository.NewMemory(), newChatLLM("analysis"), workflow, nil, nil, nil)
		gt.NoError(t, uc.SetPreferredEngine(ctx, types.EngineAI))

		reply, err := uc.SendMessage(ctx, "", "hello there", "")
		gt.NoError(t, err).Required()
		gt.S(t, reply.Content).Contains("[AI Engine]")
		gt.Equal(t, workflow.agentCalls, 0)
	})
}

func TestConversationManagement(t *testing.T) {
	ctx := context.Background()

	t.Run("rename", func(t *testing.T) {
		uc := usecase.NewChat(repository.NewMemory(), nil, nil, nil, nil, nil)
		conv, err := uc.CreateConversation(ctx, "Old", "", "")
		gt.NoError(t, err).Required()

		gt.NoError(t, uc.RenameConversation(ctx, conv.ID, "  New Title  "))
		updated, err := uc.GetConversation(ctx, conv.ID)
		gt.NoError(t, err).Required()
		gt.Equal(t, updated.Title, "New Title")

		gt.Error(t, uc.RenameConversation(ctx, conv.ID, "   "))
	})

	t.Run("delete removes history", func(t *testing.T) {
		repo := repository.NewMemory()
		uc := usecase.NewChat(repo, nil, &mockWorkflowClient{}, nil, nil, nil)

		reply, err := uc.SendMessage(ctx, "", "hello", types.EngineSOAR)
		gt.NoError(t, err).Required()

		gt.NoError(t, uc.DeleteConversation(ctx, reply.ConversationID))

		_, err = uc.GetConversation(ctx, reply.ConversationID)
		gt.Error(t, err)
		messages, err := repo.ListChatMessages(ctx, reply.ConversationID, 0)
		gt.NoError(t, err)
		gt.A(t, messages).Length(0)
	})

	t.Run("long first message truncates the summary", func(t *testing.T) {
		repo := repository.NewMemory()
		uc := usecase.NewChat(repo, nil, &mockWorkflowClient{}, nil, nil, nil)

		long := strings.Repeat("a", 150)
		_, err := uc.SendMessage(ctx, "", long, types.EngineSOAR)
		gt.NoError(t, err).Required()

		convs, err := repo.ListConversations(ctx)
		gt.NoError(t, err).Required()
		gt.A(t, convs).Length(1)
		gt.Equal(t, convs[0].Summary, strings.Repeat("a", 120)+"...")
	})

	t.Run("summary truncation respects rune boundaries", func(t *testing.T) {
		repo := repository.NewMemory()
		uc := usecase.NewChat(repo, nil, &mockWorkflowClient{}, nil, nil, nil)

		long := strings.Repeat("警", 150)
		_, err := uc.SendMessage(ctx, "", long, types.EngineSOAR)
		gt.NoError(t, err).Required()

		convs, err := repo.ListConversations(ctx)
		gt.NoError(t, err).Required()
		gt.A(t, convs).Length(1)
		gt.Equal(t, convs[0].Summary, strings.Repeat("警", 120)+"...")
		gt.True(t, utf8.ValidString(convs[0].Summary))
	})
}
