package handler

import (
	"errors"

	"TaskNest/internal/modules/group/domain/entity"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// RegisterValidators 注册 binding 标签 grouprole：只允许 admin / member（owner 不可指派）
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return errors.New("gin validator engine is not go-playground/validator")
	}
	return v.RegisterValidation("grouprole", validGroupRole)
}

func validGroupRole(fl validator.FieldLevel) bool {
	role := fl.Field().String()
	return role == entity.RoleAdmin || role == entity.RoleMember
}
