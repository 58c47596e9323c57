package testutil

import (
	"github.com/google/uuid"
)

// Fixed ids for deterministic tests.
var (
	BuyerID  = uuid.MustParse("00000000-0000-0000-0000-000000000001")
	SellerID = uuid.MustParse("00000000-0000-0000-0000-000000000002")
	AdminID  = uuid.MustParse("00000000-0000-0000-0000-000000000003")

	FacilityID = uuid.MustParse("00000000-0000-0000-0000-000000000010")
	EventID    = uuid.MustParse("00000000-0000-0000-0000-000000000020")
)
