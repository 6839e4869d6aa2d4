package grid

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// bookingSeparator joins the resource id and the resource-assigned
// reservation id into the external booking representation.
const bookingSeparator = "_"

// FormatBookingID renders the external booking id "<resourceId>_<reservationId>".
func FormatBookingID(resourceID, reservationID int) string {
	return fmt.Sprintf("%d%s%d", resourceID, bookingSeparator, reservationID)
}

// ParseBookingID splits a booking id back into its resource id and
// reservation id. Malformed input (wrong separator count, non-numeric
// parts, negative ids) yields an error, never a panic.
func ParseBookingID(bookingID string) (resourceID, reservationID int, err error) {
	parts := strings.Split(bookingID, bookingSeparator)
	if len(parts) != 2 {
		return 0, 0, errors.Errorf("malformed booking id %q", bookingID)
	}
	resourceID, err = strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, errors.Wrapf(err, "malformed resource id in booking id %q", bookingID)
	}
	reservationID, err = strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, errors.Wrapf(err, "malformed reservation id in booking id %q", bookingID)
	}
	if resourceID < 0 || reservationID < 0 {
		return 0, 0, errors.Errorf("negative id in booking id %q", bookingID)
	}
	return resourceID, reservationID, nil
}
