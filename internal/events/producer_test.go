package events

import (
	"context"
	"strings"
	"sync"

	cloudevents "github.com/cloudevents/sdk-go/v2"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("producer", func() {
	It("sends the events in order", func() {
		w := newTestWriter()
		producer := NewEventProducer(w, WithOutputTopic("migrations"), WithSource("test"))

		Expect(producer.Write(context.TODO(), MigrationCompletedKind, strings.NewReader(`{"project_name":"a"}`))).To(Succeed())
		Expect(producer.Write(context.TODO(), MigrationFailedKind, strings.NewReader(`{"project_name":"b"}`))).To(Succeed())

		Eventually(w.Len).Should(Equal(2))

		events := w.Events()
		Expect(events[0].Type()).To(Equal(MigrationCompletedKind))
		Expect(events[0].Source()).To(Equal("test"))
		Expect(events[0].ID()).NotTo(BeEmpty())
		Expect(string(events[0].Data())).To(Equal(`{"project_name":"a"}`))
		Expect(events[1].Type()).To(Equal(MigrationFailedKind))
		Expect(w.topics).To(HaveEach("migrations"))

		Expect(producer.Close()).To(Succeed())
		Expect(w.closed).To(BeTrue())
	})

	It("flushes pending events on close", func() {
		w := newTestWriter()
		producer := NewEventProducer(w)

		for i := 0; i < 10; i++ {
			Expect(producer.Write(context.TODO(), MigrationCompletedKind, strings.NewReader(`{}`))).To(Succeed())
		}

		Expect(producer.Close()).To(Succeed())
		Expect(w.Len()).To(Equal(10))
		Expect(w.topics).To(HaveEach(defaultTopic))
	})
})

type testwriter struct {
	mu     sync.Mutex
	events []cloudevents.Event
	topics []string
	closed bool
}

func newTestWriter() *testwriter {
	return &testwriter{}
}

func (t *testwriter) Write(ctx context.Context, topic string, e cloudevents.Event) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.events = append(t.events, e)
	t.topics = append(t.topics, topic)
	return nil
}

func (t *testwriter) Close(_ context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	return nil
}

func (t *testwriter) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.events)
}

func (t *testwriter) Events() []cloudevents.Event {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]cloudevents.Event(nil), t.events...)
}
