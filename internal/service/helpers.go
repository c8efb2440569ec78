package service

import "github.com/maheshrc27/postsphere/internal/transfer"

const (
	defaultLimit = 100
	maxLimit     = 100
)

// pageBounds turns a requested page into an offset and limit the
// repositories accept.
func pageBounds(p transfer.Page) (int, int) {
	offset, limit := p.Skip, p.Limit
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 || limit > maxLimit {
		limit = defaultLimit
	}
	return offset, limit
}
