package usecase

import (
	"context"
	"fmt"
	"time"

	"sleeper-booking/internal/data/entity"
	"sleeper-booking/internal/data/repository"
	"sleeper-booking/internal/dto/request"
	"sleeper-booking/internal/dto/response"
	"sleeper-booking/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type UserService interface {
	// Login registers the email on first use. There are no passwords.
	Login(ctx context.Context, req *request.LoginRequest) (*response.UserResponse, error)
}

type userService struct {
	userRepo repository.UserRepository
	log      *zap.Logger
}

func NewUserService(userRepo repository.UserRepository, log *zap.Logger) UserService {
	return &userService{
		userRepo: userRepo,
		log:      log.With(zap.String("service", "user")),
	}
}

func (us *userService) Login(ctx context.Context, req *request.LoginRequest) (*response.UserResponse, error) {
	req.Normalize()
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		us.log.Warn("Login validation failed", zap.Any("errors", errs))
		return nil, fmt.Errorf("%w: %s", ErrValidation, utils.FormatValidationErrors(errs))
	}

	email := req.Email

	user, err := us.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	if user == nil {
		now := time.Now()
		user, err = us.userRepo.FindOrCreate(ctx, &entity.User{
			Base:  entity.Base{ID: uuid.New(), CreatedAt: now, UpdatedAt: now},
			Email: email,
		})
		if err != nil {
			return nil, err
		}
		us.log.Info("User registered", zap.String("email", email))
	}

	resp := response.UserToResponse(user)
	return &resp, nil
}
