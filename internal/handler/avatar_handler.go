package handler

import (
	"net/http"
	"strings"

	"stagechat/internal/app/chat"
	"stagechat/internal/pkg/errs"
	"stagechat/internal/pkg/logx"
	"stagechat/internal/pkg/randx"
	"stagechat/internal/pkg/req"
	"stagechat/internal/pkg/resp"
)

// allowedImageTypes lists the MIME types accepted for avatar uploads.
var allowedImageTypes = map[string]struct{}{
	"image/png":  {},
	"image/jpeg": {},
	"image/gif":  {},
	"image/webp": {},
}

// HandleAvatarUpload creates an HTTP HandlerFunc that accepts a multipart
// avatar image, stores it on the image host, registers the resulting URL
// for the nickname, and broadcasts the profile change to every connection.
func HandleAvatarUpload(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if deps.ImageHost == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrStorageDisabled))
			return
		}

		if customErr := req.SetupMultipart(w, r); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		nickname := strings.TrimSpace(r.FormValue("nickname"))
		if nickname == "" {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		file, header, err := r.FormFile("avatar")
		if err != nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrFormParseFailed))
			return
		}
		defer file.Close()

		if header.Size > req.MaxRequestFileSize {
			resp.RespondError(w, r, errs.NewError(errs.ErrFileSizeTooLarge))
			return
		}

		mimeType := header.Header.Get("Content-Type")
		if _, ok := allowedImageTypes[mimeType]; !ok {
			resp.RespondError(w, r, errs.NewError(errs.ErrFileTypeInvalid))
			return
		}

		key := randx.AvatarKey(nickname, header.Filename)

		url, err := deps.ImageHost.Upload(r.Context(), key, mimeType, file)
		if err != nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrFileStorageFailed))
			return
		}

		if err := deps.ChatDeps.Profiles.Set(r.Context(), nickname, url); err != nil {
			logx.Error(err, "Failed to register uploaded avatar", "nickname", nickname)
			resp.RespondError(w, r, errs.NewError(errs.ErrBackingStore))
			return
		}

		deps.Hub.BroadcastAll(chat.Event{Name: chat.EvtProfileUpdated, Data: chat.ProfileUpdatedPayload{
			Nickname: nickname,
			Image:    url,
		}})

		logx.Info("Avatar uploaded and registered", "nickname", nickname, "key", key)

		resp.RespondSuccess(w, r, map[string]string{
			"nickname": nickname,
			"avatar":   url,
		})
	}
}
