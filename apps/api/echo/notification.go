package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/shuleapp/shule/core"
	"github.com/shuleapp/shule/core/notification"
)

type notificationApi struct {
	svc   *notification.Service
	clock core.Clock
}

func registerNotificationAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := notificationApi{
		svc:   deps.NotificationSvc,
		clock: deps.Clock,
	}

	ng := g.Group("/notifications", jwt)

	ng.GET("", api.query)
	ng.GET("/unread-count", api.unreadCount)
	ng.POST("/read-all", api.readAll)
	ng.POST("/:id/read", api.read)
	ng.GET("/preferences", api.getPreferences)
	ng.PUT("/preferences", api.updatePreferences)
}

// Handlers

func (api *notificationApi) query(ctx echo.Context) error {
	opts := new(notification.ListOptions)
	if err := ctx.Bind(opts); err != nil {
		return ctx.JSON(http.StatusOK, []NotificationResponse{})
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	items, err := api.svc.ListForUser(ctx.Request().Context(), claims.Subject, *opts)
	if err != nil {
		return errors.Wrap(err, "querying notifications")
	}

	now := api.clock.Now()
	out := make([]NotificationResponse, 0, len(items))
	for _, n := range items {
		out = append(out, NotificationResponse{Notification: n, TimeAgo: n.TimeAgo(now)})
	}
	return ctx.JSON(http.StatusOK, out)
}

func (api *notificationApi) unreadCount(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	count, err := api.svc.UnreadCount(ctx.Request().Context(), claims.Subject)
	if err != nil {
		return errors.Wrap(err, "counting unread notifications")
	}
	return ctx.JSON(http.StatusOK, UnreadCountResponse{Count: count})
}

// read marks one of the user's own notifications as read. Another user's
// notification is reported as not found, never touched.
func (api *notificationApi) read(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	ok, err := api.svc.MarkRead(ctx.Request().Context(), ctx.Param("id"), claims.Subject)
	if err != nil {
		return errors.Wrap(err, "marking notification read")
	}
	if !ok {
		return errHttpNotFound
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *notificationApi) readAll(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	marked, err := api.svc.MarkAllRead(ctx.Request().Context(), claims.Subject)
	if err != nil {
		return errors.Wrap(err, "marking all notifications read")
	}
	return ctx.JSON(http.StatusOK, ReadAllResponse{Marked: marked})
}

func (api *notificationApi) getPreferences(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	prefs, err := api.svc.GetPreferences(ctx.Request().Context(), claims.Subject)
	if err != nil {
		return errors.Wrap(err, "getting notification preferences")
	}
	return ctx.JSON(http.StatusOK, prefs)
}

func (api *notificationApi) updatePreferences(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	var prefs notification.Preferences
	if err := ctx.Bind(&prefs); err != nil {
		return errors.Wrap(err, "binding to Preferences")
	}
	prefs.UserID = claims.Subject

	prefs, err = api.svc.UpdatePreferences(ctx.Request().Context(), prefs)
	if err != nil {
		return errors.Wrap(err, "updating notification preferences")
	}
	return ctx.JSON(http.StatusOK, prefs)
}

type (
	NotificationResponse struct {
		notification.Notification
		TimeAgo string `json:"time_ago"`
	}

	UnreadCountResponse struct {
		Count int `json:"count"`
	}

	ReadAllResponse struct {
		Marked int `json:"marked"`
	}
)
