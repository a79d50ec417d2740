package application_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ericfisherdev/mytaskpanel/internal/application"
)

func TestNotifier_PublishCoalesces(t *testing.T) {
	n := application.NewNotifier()
	ch, cancel := n.Subscribe(application.TopicActive)
	defer cancel()

	n.Publish(application.TopicActive)
	n.Publish(application.TopicActive)
	n.Publish(application.TopicActive)

	assert.Len(t, ch, 1)
}

func TestNotifier_TopicsAreIndependent(t *testing.T) {
	n := application.NewNotifier()
	active, cancelActive := n.Subscribe(application.TopicActive)
	defer cancelActive()
	projects, cancelProjects := n.Subscribe(application.TopicProjects)
	defer cancelProjects()

	n.Publish(application.TopicProjects)

	assert.Empty(t, active)
	assert.Len(t, projects, 1)
}

func TestNotifier_CancelUnsubscribes(t *testing.T) {
	n := application.NewNotifier()
	ch, cancel := n.Subscribe(application.TopicActive)
	assert.Equal(t, 1, n.Subscribers(application.TopicActive))

	cancel()
	cancel()
	n.Publish(application.TopicActive)

	assert.Equal(t, 0, n.Subscribers(application.TopicActive))
	assert.Empty(t, ch)
}

func TestNotifier_NilPublishIsNoop(t *testing.T) {
	var n *application.Notifier
	assert.NotPanics(t, func() { n.Publish(application.TopicActive) })
}
