package relay

import (
	"fmt"
	"strconv"
	"strings"
)

// Topic names a broadcast channel
type Topic string

// TopicKind is the part of a topic before the colon
type TopicKind string

const (
	KindDelivery      TopicKind = "delivery"
	KindRider         TopicKind = "rider"
	KindAdmin         TopicKind = "admin"
	KindNotifications TopicKind = "notifications"
)

// AdminTracking carries every active delivery
const AdminTracking Topic = "admin:tracking"

// DeliveryTopic is the customer view of one order
func DeliveryTopic(orderID int64) Topic {
	return Topic(fmt.Sprintf("%s:%d", KindDelivery, orderID))
}

// RiderTopic carries commands and acks to one rider
func RiderTopic(riderID int64) Topic {
	return Topic(fmt.Sprintf("%s:%d", KindRider, riderID))
}

// NotificationTopic carries personal notices for one user
func NotificationTopic(userID int64) Topic {
	return Topic(fmt.Sprintf("%s:%d", KindNotifications, userID))
}

// ParseTopic splits a topic into its kind and numeric id. The admin topic
// has id 0.
func ParseTopic(s string) (TopicKind, int64, error) {
	if Topic(s) == AdminTracking {
		return KindAdmin, 0, nil
	}

	kind, rawID, ok := strings.Cut(s, ":")
	if !ok {
		return "", 0, fmt.Errorf("malformed topic %q", s)
	}

	switch TopicKind(kind) {
	case KindDelivery, KindRider, KindNotifications:
	default:
		return "", 0, fmt.Errorf("unknown topic kind %q", kind)
	}

	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil || id <= 0 {
		return "", 0, fmt.Errorf("invalid id in topic %q", s)
	}
	return TopicKind(kind), id, nil
}
