package importer

import (
	"strings"

	"crm-web/internal/models"
)

// ContactFingerprint is the duplicate key for a contact.
func ContactFingerprint(c models.Contact) string {
	return strings.ToLower(strings.TrimSpace(c.Name)) + "|" + strings.ToLower(strings.TrimSpace(c.Email))
}

// FindDuplicateContacts pairs every contact with the first earlier contact
// sharing its fingerprint. Two blank contacts share the fingerprint "|".
func FindDuplicateContacts(contacts []models.Contact) []models.DuplicatePair {
	firstSeen := make(map[string]int, len(contacts))
	pairs := []models.DuplicatePair{}

	for i, c := range contacts {
		fp := ContactFingerprint(c)
		if first, ok := firstSeen[fp]; ok {
			pairs = append(pairs, models.DuplicatePair{FirstIndex: first, DuplicateIndex: i})
			continue
		}
		firstSeen[fp] = i
	}

	return pairs
}
