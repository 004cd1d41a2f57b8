package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/fathima-sithara/chat-hub/internal/apperr"
	"github.com/fathima-sithara/chat-hub/internal/repository"
)

type registerReq struct {
	Name       string `json:"name" validate:"required,max=80"`
	Email      string `json:"email" validate:"required,email"`
	Password   string `json:"password" validate:"required,min=6,max=72"`
	ProfilePic string `json:"profilePic" validate:"omitempty,url"`
}

func (h *Handler) Register(c *fiber.Ctx) error {
	var req registerReq
	if err := bind(c, &req); err != nil {
		return err
	}
	session, err := h.accounts.Register(c.UserContext(), req.Name, req.Email, req.Password, req.ProfilePic)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(session)
}

type loginReq struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func (h *Handler) Login(c *fiber.Ctx) error {
	var req loginReq
	if err := bind(c, &req); err != nil {
		return err
	}
	session, err := h.accounts.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(session)
}

func (h *Handler) Me(c *fiber.Ctx) error {
	user, err := h.users.GetUser(c.UserContext(), UserID(c))
	if err != nil {
		return repository.AppError(err, "user")
	}
	return c.JSON(user)
}

func (h *Handler) Presence(c *fiber.Ctx) error {
	userID := c.Params("userId")
	online, err := h.online.Online(c.UserContext(), userID)
	if err != nil {
		// only the cluster lookup can fail; the local count cannot
		h.log.Warn("presence lookup", zap.String("user_id", userID), zap.Error(err))
		return apperr.Transient(err)
	}
	return c.JSON(fiber.Map{"userId": userID, "online": online})
}

func Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}
