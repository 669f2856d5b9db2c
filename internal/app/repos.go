package app

import (
	"gorm.io/gorm"

	"github.com/docstream/docstream-backend/internal/data/repos/documents"
	"github.com/docstream/docstream-backend/internal/pkg/logger"
)

type Repos struct {
	Documents documents.Repo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	return Repos{
		Documents: documents.NewRepo(db, log),
	}
}
