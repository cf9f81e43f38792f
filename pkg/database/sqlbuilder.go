package database

import (
	"github.com/huandu/go-sqlbuilder"
)

// Struct binds a db-tagged model to the flavor of the connection it will be
// used with.
type Struct struct {
	*sqlbuilder.Struct
}

func NewStruct(v any, flavor sqlbuilder.Flavor) *Struct {
	return &Struct{sqlbuilder.NewStruct(v).For(flavor)}
}

func NewInsertBuilder(flavor sqlbuilder.Flavor) *sqlbuilder.InsertBuilder {
	return flavor.NewInsertBuilder()
}

func NewUpdateBuilder(flavor sqlbuilder.Flavor) *sqlbuilder.UpdateBuilder {
	return flavor.NewUpdateBuilder()
}

func NewDeleteBuilder(flavor sqlbuilder.Flavor) *sqlbuilder.DeleteBuilder {
	return flavor.NewDeleteBuilder()
}

func NewSelectBuilder(flavor sqlbuilder.Flavor) *sqlbuilder.SelectBuilder {
	return flavor.NewSelectBuilder()
}
