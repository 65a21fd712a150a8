package rabbitmq

import "testing"

func TestIsHealthy_WithoutConnection(t *testing.T) {
	var nilPublisher *RabbitMQPublisher
	if nilPublisher.IsHealthy() {
		t.Fatalf("nil publisher must not report healthy")
	}

	if (&RabbitMQPublisher{}).IsHealthy() {
		t.Fatalf("publisher without a connection must not report healthy")
	}
}
