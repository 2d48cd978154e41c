package streamparser

import "github.com/unfazed-dev/a2ui-adapter/xerrors"

func errMissingField(eventType, fields string) error {
	return xerrors.New(xerrors.KindStream, eventType+": missing required field(s) "+fields)
}
