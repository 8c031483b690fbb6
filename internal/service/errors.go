package service

import "errors"

// ErrEmptyBatch возвращается при попытке опубликовать пустую очередь.
var ErrEmptyBatch = errors.New("batch is empty")
