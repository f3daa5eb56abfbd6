package push

import (
	"context"
	"fmt"
	"io"
	"net/http"

	webpush "github.com/SherClockHolmes/webpush-go"
)

// ErrSubscriptionGone marks a delivery address the push service reports as
// expired; the dispatcher prunes it.
type ErrSubscriptionGone struct {
	StatusCode int
}

func (e *ErrSubscriptionGone) Error() string {
	return fmt.Sprintf("push: subscription gone (status %d)", e.StatusCode)
}

// WebPushSender delivers notifications over the Web Push protocol with
// VAPID authentication.
type WebPushSender struct {
	subscriber string
	publicKey  string
	privateKey string
	ttl        int
}

// NewWebPushSender constructs a sender with the given VAPID key pair and
// contact subject.
func NewWebPushSender(subject, publicKey, privateKey string) *WebPushSender {
	return &WebPushSender{
		subscriber: subject,
		publicKey:  publicKey,
		privateKey: privateKey,
		ttl:        60,
	}
}

// Send performs one delivery attempt against the subscription's endpoint.
func (s *WebPushSender) Send(ctx context.Context, sub Subscription, payload []byte) error {
	resp, err := webpush.SendNotificationWithContext(ctx, payload, &sub, &webpush.Options{
		Subscriber:      s.subscriber,
		VAPIDPublicKey:  s.publicKey,
		VAPIDPrivateKey: s.privateKey,
		TTL:             s.ttl,
	})
	if err != nil {
		return err
	}
	defer func() {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return &ErrSubscriptionGone{StatusCode: resp.StatusCode}
	case resp.StatusCode >= 400:
		return fmt.Errorf("push: endpoint returned status %d", resp.StatusCode)
	}

	return nil
}
