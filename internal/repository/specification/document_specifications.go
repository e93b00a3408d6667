package specification

import "gorm.io/gorm"

// ByUploader scopes chunks to one owner. An empty username matches everything.
type ByUploader struct {
	Username string
}

func (s ByUploader) Apply(db *gorm.DB) *gorm.DB {
	if s.Username == "" {
		return db
	}
	return db.Where("uploader_username = ?", s.Username)
}

// ByEmbeddingModel keeps vectors comparable: chunks embedded by another model
// version are excluded. An empty model disables the filter.
type ByEmbeddingModel struct {
	Model string
}

func (s ByEmbeddingModel) Apply(db *gorm.DB) *gorm.DB {
	if s.Model == "" {
		return db
	}
	return db.Where("embedding_model = ?", s.Model)
}

type BySourceFile struct {
	SourceFileId string
}

func (s BySourceFile) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("source_file_id = ?", s.SourceFileId)
}

// FullTextMatch keeps chunks whose content matches the query under the
// language-neutral 'simple' text search configuration.
type FullTextMatch struct {
	Query string
}

func (s FullTextMatch) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("to_tsvector('simple', content) @@ plainto_tsquery('simple', ?)", s.Query)
}
