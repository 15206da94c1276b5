package model

// TeamSubmission is the aggregate value of a roster form at submit time.
type TeamSubmission struct {
	Coach   string          `json:"coach" form:"coach" validate:"required"`
	Players []*PlayerRecord `json:"players" form:"players" validate:"dive,required"`
}

type PlayerRecord struct {
	Name string `json:"name" form:"name" validate:"required"`
	Goal int    `json:"goal" form:"goal" validate:"gte=0"`
}
