package parsers

import (
	"fmt"

	"github.com/username/btmdesk/backend/src/models"
	"github.com/username/btmdesk/backend/src/parsers/bitaccess"
	"github.com/username/btmdesk/backend/src/parsers/genesis"
)

func GetParser(platform string) (Parser, error) {
	switch platform {
	case models.PlatformGenesis:
		return genesis.NewParser(), nil
	case models.PlatformBitaccess:
		return bitaccess.NewParser(), nil
	default:
		return nil, fmt.Errorf("no parser available for platform: %s", platform)
	}
}
