package handlers

import (
	"context"

	"github.com/dmitrijs2005/outlinebot/internal/bot/models"
	"github.com/skip2/go-qrcode"
)

const qrSize = 256

// sendInvite delivers the invite for k to the requesting user's private
// chat: the text with the access key, then a QR code of the access key.
func (r *Router) sendInvite(ctx context.Context, q *request, k *models.Key) {
	userID := q.ev.From.ID

	if _, err := r.msg.Send(ctx, userID, inviteText(k.AccessURL), nil); err != nil {
		q.logger.Warn(ctx, "error sending invite", "error", err, "key_id", k.KeyID)
		if q.chatID() != userID {
			r.send(ctx, q, msgNoPrivateChat, nil)
		}
		return
	}

	png, err := qrcode.Encode(k.AccessURL, qrcode.Medium, qrSize)
	if err != nil {
		q.logger.Warn(ctx, "error rendering qr code", "error", err, "key_id", k.KeyID)
		return
	}
	if err := r.msg.SendPhoto(ctx, userID, "key.png", png, k.DisplayName()); err != nil {
		q.logger.Warn(ctx, "error sending qr code", "error", err, "key_id", k.KeyID)
	}
}
