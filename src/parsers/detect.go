package parsers

import "github.com/username/btmdesk/backend/src/models"

// bitaccessMarkers are column names that only appear in Bitaccess exports.
// Seeing any one of them classifies the whole file; the decision is made once
// per file, never per row.
var bitaccessMarkers = []string{
	"atm.id", "atm_id",
	"coin.type", "coin_type",
	"inserted.amount", "inserted_amount",
}

// DetectPlatform classifies a CSV file by its header set.
func DetectPlatform(headers []string) string {
	seen := make(map[string]bool, len(headers))
	for _, h := range headers {
		seen[models.NormalizeHeader(h)] = true
	}
	for _, marker := range bitaccessMarkers {
		if seen[marker] {
			return models.PlatformBitaccess
		}
	}
	return models.PlatformGenesis
}
