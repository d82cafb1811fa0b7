package orders

const (
	TopicAdministrationCommitted = "clinic.administration.committed"
	TopicStockRestocked          = "clinic.stock.restocked"
	TopicStockLow                = "clinic.stock.low"
)

// Partition key = order id for administrations and medicine id for stock
// events, so events of one entity keep their order.
func PartitionKey(id string) []byte { return []byte(id) }
