package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/fathima-sithara/chat-hub/internal/domain"
	"github.com/fathima-sithara/chat-hub/internal/events"
)

// friends

func (h *Handler) ListFriends(c *fiber.Ctx) error {
	friends, err := h.friends.Friends(c.UserContext(), UserID(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"friends": friends})
}

func (h *Handler) Unfriend(c *fiber.Ctx) error {
	if err := h.friends.Unfriend(c.UserContext(), UserID(c), c.Params("friendId")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *Handler) ListFriendRequests(c *fiber.Ctx) error {
	reqs, err := h.friends.Requests(c.UserContext(), UserID(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"requests": reqs})
}

func (h *Handler) SendFriendRequest(c *fiber.Ctx) error {
	var req events.SendFriendRequestRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	fr, err := h.friends.SendRequest(c.UserContext(), UserID(c), req.ReceiverID)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fr)
}

func (h *Handler) AcceptFriendRequest(c *fiber.Ctx) error {
	fr, friendship, err := h.friends.Accept(c.UserContext(), UserID(c), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"request": fr, "friendship": friendship})
}

func (h *Handler) RejectFriendRequest(c *fiber.Ctx) error {
	fr, err := h.friends.Reject(c.UserContext(), UserID(c), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"request": fr})
}

func (h *Handler) CancelFriendRequest(c *fiber.Ctx) error {
	fr, err := h.friends.Cancel(c.UserContext(), UserID(c), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"request": fr})
}

// messages

func (h *Handler) Thread(c *fiber.Ctx) error {
	msgs, err := h.messaging.Thread(c.UserContext(), UserID(c), c.Params("friendId"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"messages": msgs})
}

func (h *Handler) SendMessage(c *fiber.Ctx) error {
	var req events.SendMessageRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	msg, err := h.messaging.Send(c.UserContext(), UserID(c), req.ReceiverID, req.Content)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(msg)
}

type editMessageReq struct {
	Content string `json:"content" validate:"required,max=4000"`
}

func (h *Handler) EditMessage(c *fiber.Ctx) error {
	var req editMessageReq
	if err := bind(c, &req); err != nil {
		return err
	}
	msg, err := h.messaging.Edit(c.UserContext(), UserID(c), c.Params("id"), req.Content)
	if err != nil {
		return err
	}
	return c.JSON(msg)
}

func (h *Handler) DeleteMessage(c *fiber.Ctx) error {
	if err := h.messaging.Delete(c.UserContext(), UserID(c), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *Handler) MarkRead(c *fiber.Ctx) error {
	ids, err := h.messaging.MarkRead(c.UserContext(), UserID(c), c.Params("senderId"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"messageIds": ids})
}

type reactionReq struct {
	Emoji string `json:"emoji" validate:"required,max=32"`
}

func (h *Handler) React(c *fiber.Ctx) error {
	var req reactionReq
	if err := bind(c, &req); err != nil {
		return err
	}
	r, err := h.messaging.React(c.UserContext(), UserID(c), c.Params("id"), req.Emoji)
	if err != nil {
		return err
	}
	return c.JSON(r)
}

func (h *Handler) Unreact(c *fiber.Ctx) error {
	removed, err := h.messaging.Unreact(c.UserContext(), UserID(c), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"removed": removed})
}

// calls

func (h *Handler) CallHistory(c *fiber.Ctx) error {
	limit := queryLimit(c, h.historyLimit, 200)
	history, err := h.calls.History(c.UserContext(), UserID(c), limit)
	if err != nil {
		return err
	}
	if history == nil {
		history = []domain.Call{}
	}
	return c.JSON(fiber.Map{"calls": history})
}
