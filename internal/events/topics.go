package events

// Topic constants for domain events emitted by the storefront.
const (
	TopicOrderCreated       = "order.created"
	TopicOrderStatusChanged = "order.status_changed"
	TopicOrderCancelled     = "order.cancelled"
	TopicEnquiryCreated     = "enquiry.created"
	TopicSawamaniCreated    = "sawamani.created"
)

// DefaultTopics returns the canonical list of emitted topics.
func DefaultTopics() []string {
	return []string{
		TopicOrderCreated,
		TopicOrderStatusChanged,
		TopicOrderCancelled,
		TopicEnquiryCreated,
		TopicSawamaniCreated,
	}
}

// IsOrderTopic reports whether topic describes an order change.
func IsOrderTopic(topic string) bool {
	switch topic {
	case TopicOrderCreated, TopicOrderStatusChanged, TopicOrderCancelled:
		return true
	}
	return false
}
