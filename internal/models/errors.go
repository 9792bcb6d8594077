package models

import "errors"

// ErrInvalidImport возвращается, когда импортируемый документ не является
// JSON-массивом записей. Это единственная ошибка хранилища, которая
// доходит до вызывающей стороны.
var ErrInvalidImport = errors.New("import data must be a JSON array of records")

// ErrEmptyComment возвращается при попытке опубликовать пустой комментарий.
var ErrEmptyComment = errors.New("comment text is empty")
