package email

import "sync"

// MockProvider records sends for tests.
type MockProvider struct {
	mu   sync.Mutex
	Sent []MockMessage
	Fail error
}

type MockMessage struct {
	To      string
	Subject string
	Body    string
}

func (m *MockProvider) Send(to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail != nil {
		return m.Fail
	}
	m.Sent = append(m.Sent, MockMessage{To: to, Subject: subject, Body: body})
	return nil
}

func (m *MockProvider) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Sent)
}
