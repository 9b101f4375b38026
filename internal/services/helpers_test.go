package services

import (
	"context"
	"testing"

	"github.com/petermazzocco/go-dashboard/internal/logger"
	"github.com/petermazzocco/go-dashboard/internal/testutil"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type fixture struct {
	db        *gorm.DB
	ctx       context.Context
	users     *UserService
	projects  *ProjectService
	notes     *NoteService
	education *EducationService
	chats     *ChatService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.DB(t)
	log := logger.Nop()
	return &fixture{
		db:        db,
		ctx:       context.Background(),
		users:     NewUserService(db, log, bcrypt.MinCost),
		projects:  NewProjectService(db, log),
		notes:     NewNoteService(db, log),
		education: NewEducationService(db, log),
		chats:     NewChatService(db, nil, log, "gpt-test"),
	}
}
