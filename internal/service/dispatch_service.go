package service

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"net/url"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"assessmentlinks/internal/metrics"
	"assessmentlinks/internal/models"
)

// Message is one outbound email
type Message struct {
	To       string
	ToName   string
	Subject  string
	HTMLBody string
	TextBody string
}

// Mailer delivers a single message
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// DispatchFailure records a recipient that could not be reached
type DispatchFailure struct {
	Token     string
	Recipient string
	Err       error
}

// DispatchResult summarizes a dispatch batch. Messages refused by a disabled
// mailer count as skipped and set Disabled.
type DispatchResult struct {
	Sent     int
	Skipped  int
	Disabled bool
	Failures []DispatchFailure
}

// Failed returns how many sends failed
func (r DispatchResult) Failed() int {
	return len(r.Failures)
}

// DispatchService emails access links for unused registration tokens and active leader tokens
type DispatchService struct {
	registrations RegistrationStore
	leaders       LeaderStore
	destinations  Destinations
	mailer        Mailer
	appBaseURL    string
	timeout       time.Duration
	concurrency   int
	logger        *zap.Logger
	metrics       *metrics.Metrics
}

// NewDispatchService creates a new dispatch service. Each send is bounded by
// timeout; at most concurrency sends run at once.
func NewDispatchService(registrations RegistrationStore, leaders LeaderStore, destinations Destinations, mailer Mailer, appBaseURL string, timeout time.Duration, concurrency int, logger *zap.Logger, m *metrics.Metrics) *DispatchService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if concurrency < 1 {
		concurrency = 1
	}
	return &DispatchService{
		registrations: registrations,
		leaders:       leaders,
		destinations:  destinations,
		mailer:        mailer,
		appBaseURL:    appBaseURL,
		timeout:       timeout,
		concurrency:   concurrency,
		logger:        logger,
		metrics:       m,
	}
}

// DispatchRegistrationLinks sends each unused token's destination URL to its invitee.
// Tokens whose product and type do not resolve are skipped.
func (s *DispatchService) DispatchRegistrationLinks(ctx context.Context) (DispatchResult, error) {
	start := time.Now()
	defer func() { s.metrics.ObserveDispatch(kindRegistration, time.Since(start).Seconds()) }()

	tokens, err := s.registrations.ListUnused(ctx)
	if err != nil {
		s.logger.Warn("failed to load registration tokens for dispatch", zap.Error(err))
		return DispatchResult{}, nil
	}

	var result DispatchResult
	messages := make(map[string]Message, len(tokens))
	for i := range tokens {
		t := &tokens[i]
		link, err := s.destinations.ResolveURL(t)
		if err != nil {
			result.Skipped++
			s.logger.Warn("skipping token without destination",
				zap.String("token", t.Token),
				zap.Error(err))
			continue
		}
		messages[t.Token] = registrationMessage(t, link)
	}

	s.send(ctx, kindRegistration, messages, &result)
	return result, ctx.Err()
}

// DispatchLeaderLinks sends each active leader token's portal link to its send address
func (s *DispatchService) DispatchLeaderLinks(ctx context.Context) (DispatchResult, error) {
	start := time.Now()
	defer func() { s.metrics.ObserveDispatch(kindLeader, time.Since(start).Seconds()) }()

	tokens, err := s.leaders.List(ctx)
	if err != nil {
		s.logger.Warn("failed to load leader tokens for dispatch", zap.Error(err))
		return DispatchResult{}, nil
	}

	var result DispatchResult
	messages := make(map[string]Message, len(tokens))
	for i := range tokens {
		t := &tokens[i]
		if !t.Active {
			result.Skipped++
			continue
		}
		messages[t.Token] = leaderMessage(t, s.LeaderLink(t.Token))
	}

	s.send(ctx, kindLeader, messages, &result)
	return result, ctx.Err()
}

// LeaderLink returns the validation URL carrying only the leader token id
func (s *DispatchService) LeaderLink(token string) string {
	return s.appBaseURL + "/validar-token-leadertrack?" + url.Values{"token": {token}}.Encode()
}

func (s *DispatchService) send(ctx context.Context, kind string, messages map[string]Message, result *DispatchResult) {
	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(s.concurrency)

	for token, msg := range messages {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			sendCtx, cancel := context.WithTimeout(ctx, s.timeout)
			defer cancel()

			err := s.mailer.Send(sendCtx, msg)

			mu.Lock()
			defer mu.Unlock()
			if errors.Is(err, ErrEmailDisabled) {
				result.Skipped++
				result.Disabled = true
				s.metrics.IncDispatched(kind, "disabled")
				return nil
			}
			if err != nil {
				result.Failures = append(result.Failures, DispatchFailure{
					Token:     token,
					Recipient: msg.To,
					Err:       fmt.Errorf("%w: %v", ErrTransport, err),
				})
				s.metrics.IncDispatched(kind, "failed")
				s.logger.Error("failed to send link",
					zap.String("kind", kind),
					zap.String("token", token),
					zap.String("to", msg.To),
					zap.Error(err))
				return nil
			}
			result.Sent++
			s.metrics.IncDispatched(kind, "sent")
			return nil
		})
	}
	// Sends never return an error; failures are collected above
	_ = g.Wait()

	s.logger.Info("dispatch finished",
		zap.String("kind", kind),
		zap.Int("sent", result.Sent),
		zap.Int("failed", result.Failed()),
		zap.Int("skipped", result.Skipped),
		zap.Bool("disabled", result.Disabled))
}

func registrationMessage(t *models.RegistrationToken, link string) Message {
	name := template.HTMLEscapeString(t.Name)
	href := template.HTMLEscapeString(link)

	htmlBody := fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
	<meta charset="UTF-8">
	<style>
		body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
		.container { max-width: 600px; margin: 0 auto; padding: 20px; }
		.button { display: inline-block; padding: 12px 30px; background-color: #1f6feb; color: white; text-decoration: none; border-radius: 5px; margin: 20px 0; }
		.footer { margin-top: 20px; font-size: 12px; color: #666; }
	</style>
</head>
<body>
	<div class="container">
		<p>Olá %s,</p>
		<p>Você foi convidado(a) a responder a avaliação <strong>%s</strong>.</p>
		<p style="text-align: center;">
			<a href="%s" class="button">Responder avaliação</a>
		</p>
		<p>Ou copie e cole este link no navegador:</p>
		<p style="word-break: break-all; font-size: 12px; color: #666;">%s</p>
		<div class="footer">
			<p>Mensagem automática. Não responda.</p>
		</div>
	</div>
</body>
</html>
`, name, template.HTMLEscapeString(t.Type), href, href)

	textBody := fmt.Sprintf(`Olá %s,

Você foi convidado(a) a responder a avaliação %s.

Acesse: %s

---
Mensagem automática. Não responda.
`, t.Name, t.Type, link)

	return Message{
		To:       t.Email,
		ToName:   t.Name,
		Subject:  "Convite para avaliação",
		HTMLBody: htmlBody,
		TextBody: textBody,
	}
}

func leaderMessage(t *models.LeaderAccessToken, link string) Message {
	href := template.HTMLEscapeString(link)

	htmlBody := fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
	<meta charset="UTF-8">
	<style>
		body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
		.container { max-width: 600px; margin: 0 auto; padding: 20px; }
		.button { display: inline-block; padding: 12px 30px; background-color: #1f6feb; color: white; text-decoration: none; border-radius: 5px; margin: 20px 0; }
		.footer { margin-top: 20px; font-size: 12px; color: #666; }
	</style>
</head>
<body>
	<div class="container">
		<p>Olá %s,</p>
		<p>Seu acesso ao painel de resultados da equipe está disponível.</p>
		<p style="text-align: center;">
			<a href="%s" class="button">Acessar painel</a>
		</p>
		<p>Este link é pessoal e não expira.</p>
		<p style="word-break: break-all; font-size: 12px; color: #666;">%s</p>
		<div class="footer">
			<p>Mensagem automática. Não responda.</p>
		</div>
	</div>
</body>
</html>
`, template.HTMLEscapeString(t.LeaderName), href, href)

	textBody := fmt.Sprintf(`Olá %s,

Seu acesso ao painel de resultados da equipe está disponível:
%s

Este link é pessoal e não expira.

---
Mensagem automática. Não responda.
`, t.LeaderName, link)

	return Message{
		To:       t.Recipient(),
		ToName:   t.LeaderName,
		Subject:  "Acesso ao painel de liderança",
		HTMLBody: htmlBody,
		TextBody: textBody,
	}
}
