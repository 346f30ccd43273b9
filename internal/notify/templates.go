package notify

import (
	"fmt"

	"github.com/ippel-tech/ippel-rnc/internal/db/models"
)

// messageTemplate is one (title, message) pair of the fixed template table.
// The message format takes the actor display name and the RNC number.
type messageTemplate struct {
	title   string
	message string
}

// templates maps each change type to its notification wording. Unrecognized
// types fall back to genericTemplate.
var templates = map[models.ChangeType]messageTemplate{
	models.ChangeCreated: {
		title:   "Nova RNC registrada",
		message: "%s registrou a RNC %s.",
	},
	models.ChangeUpdated: {
		title:   "RNC atualizada",
		message: "%s atualizou a RNC %s.",
	},
	models.ChangeResponded: {
		title:   "RNC respondida",
		message: "%s respondeu a RNC %s.",
	},
	models.ChangeValueAdded: {
		title:   "Valor adicionado na RNC",
		message: "%s adicionou um valor na RNC %s.",
	},
	models.ChangeFinalized: {
		title:   "RNC finalizada",
		message: "%s finalizou a RNC %s.",
	},
}

var genericTemplate = messageTemplate{
	title:   "RNC alterada",
	message: "%s alterou a RNC %s.",
}

// render produces the (title, message) pair for a change type.
func render(changeType models.ChangeType, actorName, reportNumber string) (title, message string) {
	tpl, ok := templates[changeType]
	if !ok {
		tpl = genericTemplate
	}

	return tpl.title, fmt.Sprintf(tpl.message, actorName, reportNumber)
}
