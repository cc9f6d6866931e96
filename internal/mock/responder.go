package mock

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"pkt.systems/pslog"

	"github.com/layer97/pulse/internal/client"
	"github.com/layer97/pulse/internal/server"
)

// TimestampLayout is used for every timestamp the backend emits.
const TimestampLayout = time.RFC3339

const thinkingText = "에이전트가 사고 중..."

// Publisher fans a frame out to connected clients.
type Publisher interface {
	Broadcast(frame server.Frame)
}

// ResponderOptions configures a Responder.
type ResponderOptions struct {
	Router       *Router
	Agents       map[string]string // key -> display name
	History      *History
	Publisher    Publisher
	ThinkDelay   time.Duration
	ErrorTrigger string
	Now          func() time.Time
}

// Responder plays the agent side of a chat turn: it announces thinking,
// routes the message, waits, then answers or fails.
type Responder struct {
	router       *Router
	agents       map[string]string
	history      *History
	pub          Publisher
	thinkDelay   time.Duration
	errorTrigger string
	now          func() time.Time
}

func NewResponder(opts ResponderOptions) *Responder {
	r := &Responder{
		router:       opts.Router,
		agents:       opts.Agents,
		history:      opts.History,
		pub:          opts.Publisher,
		thinkDelay:   opts.ThinkDelay,
		errorTrigger: opts.ErrorTrigger,
		now:          opts.Now,
	}
	if r.router == nil {
		r.router = NewRouter(nil, "")
	}
	if r.history == nil {
		r.history = NewHistory(0)
	}
	if r.now == nil {
		r.now = time.Now
	}
	return r
}

// HandleChat runs one turn to completion. It blocks for the think delay and
// returns early if ctx is cancelled.
func (r *Responder) HandleChat(ctx context.Context, userID, message string) {
	message = strings.TrimSpace(message)
	if message == "" {
		return
	}
	turn := uuid.NewString()
	log := pslog.Ctx(ctx).With("turn", turn)

	r.history.Append(userID, client.HistoryEntry{
		Role:      "user",
		Content:   message,
		Timestamp: r.stamp(),
	})
	r.pub.Broadcast(server.ThinkingFrame(thinkingText))

	agent, score := r.router.Route(message)
	name := r.agentName(agent)
	log.Info("chat routed", "agent", agent, "score", score)
	r.pub.Broadcast(server.SelectedFrame(agent, name))

	if r.thinkDelay > 0 {
		timer := time.NewTimer(r.thinkDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			log.Debug("chat turn abandoned", "err", ctx.Err())
			return
		case <-timer.C:
		}
	}

	if r.errorTrigger != "" && strings.Contains(message, r.errorTrigger) {
		log.Warn("chat turn failed", "reason", "error trigger")
		r.pub.Broadcast(server.ErrorFrame(fmt.Sprintf("%s 응답 생성 실패", agent)))
		return
	}

	reply := compose(agent, name, message, score)
	ts := r.stamp()
	r.history.Append(userID, client.HistoryEntry{
		Role:      "assistant",
		Content:   reply,
		Timestamp: ts,
	})
	r.pub.Broadcast(server.ResponseFrame(agent, name, reply, ts))
	log.Info("chat answered", "agent", agent, "bytes", len(reply))
}

func (r *Responder) agentName(key string) string {
	if name, ok := r.agents[key]; ok && name != "" {
		return name
	}
	return key
}

func (r *Responder) stamp() string {
	return r.now().Format(TimestampLayout)
}

// compose builds the canned markdown reply.
func compose(agent, name, message string, score int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "### %s (%s)\n\n", name, agent)
	fmt.Fprintf(&b, "> %s\n\n", strings.ReplaceAll(message, "\n", "\n> "))
	if score > 0 {
		fmt.Fprintf(&b, "키워드 %d건이 일치하여 이 요청을 맡았습니다.\n", score)
	} else {
		b.WriteString("일치하는 키워드가 없어 기본 담당자로 배정되었습니다.\n")
	}
	return b.String()
}
