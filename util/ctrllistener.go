package util

import (
	"bufio"
	"fmt"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

var ctrlListeners = make(map[string]*CtrlListener)
var ctrlMutex sync.Mutex

// CtrlCallback handles one control line. A non-nil error is reported back to the client.
type CtrlCallback func(line string) error

// CtrlListener accepts line-oriented commands on a unix socket named <root>/<id>.<pid>.sock. The
// first token of each line selects the callbacks to run.
type CtrlListener struct {
	listener  net.Listener
	lock      sync.Mutex
	callbacks map[string][]CtrlCallback
	running   bool
}

// GetCtrlListener returns the shared listener for root and id, creating it on first use.
func GetCtrlListener(root, id string) (cl *CtrlListener, err error) {
	ctrlMutex.Lock()
	defer ctrlMutex.Unlock()

	cl, found := ctrlListeners[root+id]
	if found {
		return cl, nil
	}

	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, errors.Wrapf(err, "error creating ctrl root [%s]", root)
	}
	cl = &CtrlListener{callbacks: make(map[string][]CtrlCallback)}
	address := filepath.Join(root, fmt.Sprintf("%s.%d.sock", id, os.Getpid()))
	unixAddress, err := net.ResolveUnixAddr("unix", address)
	if err != nil {
		return nil, errors.Wrap(err, "error resolving unix address")
	}
	cl.listener, err = net.ListenUnix("unix", unixAddress)
	if err != nil {
		return nil, errors.Wrap(err, "error listening")
	}
	ctrlListeners[root+id] = cl
	return cl, nil
}

func (self *CtrlListener) Addr() string {
	return self.listener.Addr().String()
}

func (self *CtrlListener) AddCallback(keyword string, f CtrlCallback) {
	self.lock.Lock()
	defer self.lock.Unlock()
	self.callbacks[keyword] = append(self.callbacks[keyword], f)
}

func (self *CtrlListener) Start() {
	self.lock.Lock()
	defer self.lock.Unlock()

	if !self.running {
		self.running = true
		go self.run()
	}
}

// Close stops accepting and forgets the listener so a later GetCtrlListener creates a fresh one.
func (self *CtrlListener) Close() error {
	ctrlMutex.Lock()
	for k, v := range ctrlListeners {
		if v == self {
			delete(ctrlListeners, k)
		}
	}
	ctrlMutex.Unlock()
	return self.listener.Close()
}

func (self *CtrlListener) run() {
	logrus.Infof("[%s] started", self.Addr())
	defer logrus.Infof("[%s] exited", self.Addr())

	for {
		conn, err := self.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) || err == io.EOF {
				return
			}
			logrus.Errorf("error accepting ctrl connection (%v)", err)
			return
		}
		go self.handle(conn)
	}
}

func (self *CtrlListener) handle(conn net.Conn) {
	logrus.Debugf("new connection for [%s]", conn.LocalAddr())
	defer logrus.Debugf("ended connection for [%s]", conn.LocalAddr())
	defer func() { _ = conn.Close() }()

	r := bufio.NewReader(conn)
	for {
		line, err := r.ReadString('\n')
		if err == io.EOF {
			return
		} else if err != nil {
			logrus.Errorf("error reading (%v)", err)
			return
		}

		if err := self.respond(conn, self.dispatch(strings.TrimSpace(line))); err != nil {
			logrus.Errorf("error responding (%v)", err)
			return
		}
	}
}

func (self *CtrlListener) dispatch(line string) string {
	tokens := strings.Fields(line)
	if len(tokens) < 1 {
		logrus.Errorf("no tokens")
		return "syntax error?"
	}

	self.lock.Lock()
	fs, found := self.callbacks[tokens[0]]
	self.lock.Unlock()
	if !found {
		logrus.Errorf("no callback for [%s]", line)
		return "syntax error?"
	}
	for _, f := range fs {
		if err := f(line); err != nil {
			logrus.Errorf("error executing callback (%v)", err)
			return fmt.Sprintf("error (%s)", err)
		}
	}
	return "ok"
}

func (self *CtrlListener) respond(conn net.Conn, response string) error {
	_, err := conn.Write([]byte(response + "\n"))
	return err
}

// CtrlCommand dials the control socket at path, sends one command and returns the response line.
func CtrlCommand(path, command string) (string, error) {
	addr, err := net.ResolveUnixAddr("unix", path)
	if err != nil {
		return "", errors.Wrap(err, "error resolving unix address")
	}
	conn, err := net.DialUnix("unix", nil, addr)
	if err != nil {
		return "", errors.Wrapf(err, "error dialing [%s]", path)
	}
	defer func() { _ = conn.Close() }()

	if _, err := conn.Write([]byte(command + "\n")); err != nil {
		return "", errors.Wrap(err, "error writing command")
	}
	line, err := bufio.NewReader(conn).ReadString('\n')
	if err != nil {
		return "", errors.Wrap(err, "error reading response")
	}
	return strings.TrimSpace(line), nil
}
