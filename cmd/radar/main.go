package main

import (
	"flag"
	"fmt"
	"log"
	"math"
	"net/url"
	"os"
	"os/signal"
	"sort"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/nsf/termbox-go"

	"github.com/annelo/starfall-server/internal/protocol"
	"github.com/annelo/starfall-server/internal/world"
)

var (
	serverAddr = flag.String("server", "localhost:5588", "Адрес сервера и порт")
	wsPath     = flag.String("path", "/game", "Путь WebSocket")
	encoding   = flag.String("encoding", "json", "Кодек сервера: json или msgpack")
	playerName = flag.String("name", "", "Имя пилота (пусто = назначит сервер)")
	scale      = flag.Float64("scale", 40, "Единиц мира на одну клетку радара")
	debugMode  = flag.Bool("debug", false, "Режим отладки (показать подробную информацию)")
)

// pulse держит клавишу поворота/огня нажатой, пока идут повторы клавиатуры
const pulse = 150 * time.Millisecond

// ClientState содержит состояние клиента
type ClientState struct {
	mu sync.RWMutex

	codec   protocol.Codec
	conn    *websocket.Conn
	writeMu sync.Mutex

	id          world.PlayerID
	name        string
	state       protocol.State
	worldConfig protocol.WorldConfig
	messages    []string
	ping        time.Duration
	frames      int
	closed      bool

	inputs world.Inputs
	timers map[string]*time.Timer
}

func newClientState(conn *websocket.Conn, codec protocol.Codec) *ClientState {
	return &ClientState{
		codec:    codec,
		conn:     conn,
		messages: []string{"Подключение к серверу..."},
		timers:   make(map[string]*time.Timer),
	}
}

// addServerMessage добавляет сообщение в начало списка
func (cs *ClientState) addServerMessage(message string) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.messages = append([]string{message}, cs.messages...)
	if len(cs.messages) > 5 {
		cs.messages = cs.messages[:5]
	}
}

func (cs *ClientState) send(msg protocol.ClientMessage) {
	data, err := cs.codec.Encode(msg)
	if err != nil {
		cs.addServerMessage(fmt.Sprintf("Ошибка кодирования: %v", err))
		return
	}
	kind := websocket.TextMessage
	if cs.codec.Binary() {
		kind = websocket.BinaryMessage
	}
	cs.writeMu.Lock()
	defer cs.writeMu.Unlock()
	if err := cs.conn.WriteMessage(kind, data); err != nil {
		cs.addServerMessage(fmt.Sprintf("Ошибка отправки: %v", err))
	}
}

// setInput отправляет только изменившуюся клавишу
func (cs *ClientState) setInput(key string, on bool) {
	cs.mu.Lock()
	var patch world.InputPatch
	switch key {
	case "thrust":
		if cs.inputs.Thrust == on {
			cs.mu.Unlock()
			return
		}
		cs.inputs.Thrust = on
		patch.Thrust = &on
	case "rotateLeft":
		if cs.inputs.RotateLeft == on {
			cs.mu.Unlock()
			return
		}
		cs.inputs.RotateLeft = on
		patch.RotateLeft = &on
	case "rotateRight":
		if cs.inputs.RotateRight == on {
			cs.mu.Unlock()
			return
		}
		cs.inputs.RotateRight = on
		patch.RotateRight = &on
	case "fire":
		if cs.inputs.Fire == on {
			cs.mu.Unlock()
			return
		}
		cs.inputs.Fire = on
		patch.Fire = &on
	}
	cs.mu.Unlock()
	cs.send(protocol.ClientMessage{Type: protocol.TypeInput, Inputs: &patch})
}

// hold включает клавишу и отпускает её через pulse после последнего нажатия
func (cs *ClientState) hold(key string) {
	cs.setInput(key, true)
	cs.mu.Lock()
	defer cs.mu.Unlock()
	if t, ok := cs.timers[key]; ok {
		t.Reset(pulse)
		return
	}
	cs.timers[key] = time.AfterFunc(pulse, func() { cs.setInput(key, false) })
}

func (cs *ClientState) toggleThrust() {
	cs.mu.RLock()
	on := !cs.inputs.Thrust
	cs.mu.RUnlock()
	cs.setInput("thrust", on)
}

// processInput обрабатывает ввод с клавиатуры
func processInput(cs *ClientState) {
	for {
		switch ev := termbox.PollEvent(); ev.Type {
		case termbox.EventKey:
			switch ev.Key {
			case termbox.KeyEsc, termbox.KeyCtrlC:
				return
			case termbox.KeyArrowUp:
				cs.toggleThrust()
			case termbox.KeyArrowLeft:
				cs.hold("rotateLeft")
			case termbox.KeyArrowRight:
				cs.hold("rotateRight")
			case termbox.KeySpace:
				cs.hold("fire")
			}
			switch ev.Ch {
			case 'w':
				cs.toggleThrust()
			case 'a':
				cs.hold("rotateLeft")
			case 'd':
				cs.hold("rotateRight")
			case 'q':
				return
			}
		case termbox.EventInterrupt:
			return
		case termbox.EventError:
			log.Fatalf("Ошибка терминала: %v", ev.Err)
		}
	}
}

// processServerMessages читает кадры сервера до закрытия соединения
func processServerMessages(cs *ClientState) {
	for {
		_, data, err := cs.conn.ReadMessage()
		if err != nil {
			if ce, ok := err.(*websocket.CloseError); ok {
				cs.addServerMessage(fmt.Sprintf("Сервер закрыл соединение: %d %s", ce.Code, ce.Text))
			} else {
				cs.addServerMessage(fmt.Sprintf("Ошибка: %v", err))
			}
			cs.mu.Lock()
			cs.closed = true
			cs.mu.Unlock()
			return
		}
		if err := cs.handle(data); err != nil {
			cs.addServerMessage(fmt.Sprintf("Ошибка декодирования: %v", err))
		}
	}
}

func (cs *ClientState) handle(data []byte) error {
	var env struct {
		Type string `json:"type"`
	}
	if err := cs.codec.Unmarshal(data, &env); err != nil {
		return err
	}

	switch env.Type {
	case protocol.TypeGameState:
		var m protocol.GameState
		if err := cs.codec.Unmarshal(data, &m); err != nil {
			return err
		}
		cs.mu.Lock()
		cs.state = m.Data
		cs.frames++
		cs.mu.Unlock()

	case protocol.TypeWelcome:
		var m protocol.Welcome
		if err := cs.codec.Unmarshal(data, &m); err != nil {
			return err
		}
		cs.mu.Lock()
		cs.id = m.ID
		cs.name = m.Ship.Name
		cs.worldConfig = m.Config
		cs.mu.Unlock()
		cs.addServerMessage(fmt.Sprintf("Успешное подключение! ID: %d, имя: %s", m.ID, m.Ship.Name))
		if *playerName != "" {
			cs.send(protocol.ClientMessage{Type: protocol.TypeChangeName, Name: *playerName})
		}

	case protocol.TypePlayerJoined:
		var m protocol.PlayerJoined
		if err := cs.codec.Unmarshal(data, &m); err != nil {
			return err
		}
		cs.addServerMessage(fmt.Sprintf("Пилот %s присоединился", m.Player.Name))

	case protocol.TypePlayerLeft:
		var m protocol.PlayerLeft
		if err := cs.codec.Unmarshal(data, &m); err != nil {
			return err
		}
		cs.addServerMessage(fmt.Sprintf("Пилот #%d отключился", m.PlayerID))

	case protocol.TypePlayerRenamed:
		var m protocol.PlayerRenamed
		if err := cs.codec.Unmarshal(data, &m); err != nil {
			return err
		}
		cs.mu.Lock()
		if m.PlayerID == cs.id {
			cs.name = m.NewName
		}
		cs.mu.Unlock()
		cs.addServerMessage(fmt.Sprintf("%s теперь %s", m.OldName, m.NewName))

	case protocol.TypePlayerKilled:
		var m protocol.PlayerKilled
		if err := cs.codec.Unmarshal(data, &m); err != nil {
			return err
		}
		cs.addServerMessage(fmt.Sprintf("Вас сбил %s", m.KillerName))

	case protocol.TypePong:
		var m protocol.Pong
		if err := cs.codec.Unmarshal(data, &m); err != nil {
			return err
		}
		sent := time.UnixMilli(int64(m.Timestamp))
		cs.mu.Lock()
		cs.ping = time.Since(sent)
		cs.mu.Unlock()

	case protocol.TypeServerShutdown:
		var m protocol.ServerShutdown
		if err := cs.codec.Unmarshal(data, &m); err != nil {
			return err
		}
		cs.addServerMessage(m.Message)
	}
	return nil
}

// cell переводит координаты мира в клетку радара
func cell(p, center float64, half int) int {
	return int(math.Round((p-center) / *scale)) + half
}

// renderRadar отображает окрестность корабля
func renderRadar(cs *ClientState) {
	termbox.Clear(termbox.ColorDefault, termbox.ColorDefault)
	width, height := termbox.Size()

	cs.mu.RLock()
	defer cs.mu.RUnlock()
	st := cs.state
	self := st.Self

	infoY := 0
	info := fmt.Sprintf("Пилот: %s | HP: %.0f/%.0f | Щит: %.0f/%.0f | Очки: %d | K/D: %d/%d | Пинг: %s",
		cs.name, self.Health, self.MaxHealth, self.Shield, self.MaxShield,
		self.Score, self.Kills, self.Deaths, cs.ping.Truncate(time.Millisecond))
	drawText(0, infoY, width, info, termbox.ColorWhite, termbox.ColorDefault)
	infoY++
	if cs.closed {
		drawText(0, infoY, width, "Соединение закрыто, Q - выход", termbox.ColorRed, termbox.ColorDefault)
		infoY++
	}
	if *debugMode {
		debug := fmt.Sprintf("X: %.0f | Y: %.0f | Курс: %.2f | Кадров: %d | Снарядов: %d | Врагов: %d",
			self.Position.X, self.Position.Y, self.Rotation, cs.frames, len(st.Projectiles), len(st.Enemies))
		drawText(0, infoY, width, debug, termbox.ColorYellow, termbox.ColorDefault)
		infoY++
	}
	for x := 0; x < width; x++ {
		termbox.SetCell(x, infoY, '-', termbox.ColorWhite, termbox.ColorDefault)
	}
	infoY++

	top := infoY
	rows := height - top - 7
	halfX, halfY := width/2, rows/2
	plot := func(x, y float64, ch rune, fg termbox.Attribute) {
		cx, cy := cell(x, self.Position.X, halfX), cell(y, self.Position.Y, halfY)
		if cx < 0 || cx >= width || cy < 0 || cy >= rows {
			return
		}
		termbox.SetCell(cx, cy+top, ch, fg, termbox.ColorDefault)
	}

	for _, p := range st.Projectiles {
		if p.IsEnemy {
			plot(p.Position.X, p.Position.Y, '*', termbox.ColorRed)
		} else {
			plot(p.Position.X, p.Position.Y, '.', termbox.ColorCyan)
		}
	}
	for _, e := range st.Enemies {
		ch := 'b'
		switch e.Kind {
		case world.Medium:
			ch = 'm'
		case world.Boss:
			ch = 'B'
		}
		plot(e.Position.X, e.Position.Y, ch, termbox.ColorMagenta)
	}
	players := append([]protocol.PlayerView(nil), st.Players...)
	sort.Slice(players, func(i, j int) bool { return players[i].ID < players[j].ID })
	for _, p := range players {
		if p.IsCurrentShip {
			continue
		}
		plot(p.Position.X, p.Position.Y, 'A', termbox.ColorYellow)
	}
	termbox.SetCell(halfX, halfY+top, heading(self.Rotation), termbox.ColorRed, termbox.ColorDarkGray)

	msgY := height - 6
	drawText(0, msgY, width, "----- Сообщения -----", termbox.ColorWhite, termbox.ColorDefault)
	msgY++
	for i, msg := range cs.messages {
		drawText(0, msgY+i, width, msg, termbox.ColorCyan, termbox.ColorDefault)
	}

	instructions := "Управление: W/↑ - тяга вкл/выкл, A/D/←/→ - поворот, Пробел - огонь, Q/Esc - выход"
	drawText(0, height-1, width, instructions, termbox.ColorWhite, termbox.ColorDefault)
	termbox.Flush()
}

// heading выбирает стрелку по углу корабля
func heading(rot float64) rune {
	arrows := []rune{'→', '↘', '↓', '↙', '←', '↖', '↑', '↗'}
	i := int(math.Round(rot/(math.Pi/4))) % len(arrows)
	if i < 0 {
		i += len(arrows)
	}
	return arrows[i]
}

// drawText отображает текст с ограничением по ширине
func drawText(x, y, maxWidth int, text string, fg, bg termbox.Attribute) {
	col := 0
	for _, ch := range text {
		if col >= maxWidth {
			return
		}
		termbox.SetCell(x+col, y, ch, fg, bg)
		col++
	}
}

func main() {
	// Парсим флаги командной строки
	flag.Parse()

	codec, err := protocol.CodecFor(*encoding)
	if err != nil {
		log.Fatalf("Неизвестный кодек: %v", err)
	}

	// Устанавливаем соединение с сервером
	u := url.URL{Scheme: "ws", Host: *serverAddr, Path: *wsPath}
	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Fatalf("Не удалось подключиться к серверу: %v", err)
	}
	defer conn.Close()

	// Инициализируем терминал
	if err := termbox.Init(); err != nil {
		log.Fatalf("Не удалось инициализировать терминал: %v", err)
	}
	defer termbox.Close()

	cs := newClientState(conn, codec)

	// Обрабатываем сигналы для корректного завершения
	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-signalChan
		termbox.Interrupt()
	}()

	go processServerMessages(cs)

	// Пинг раз в секунду для измерения задержки
	go func() {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for range ticker.C {
			cs.send(protocol.ClientMessage{Type: protocol.TypePing, Timestamp: float64(time.Now().UnixMilli())})
		}
	}()

	// Запускаем цикл обновления экрана
	go func() {
		for {
			renderRadar(cs)
			time.Sleep(50 * time.Millisecond)
		}
	}()

	processInput(cs)

	// Корректно закрываем соединение
	cs.writeMu.Lock()
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	cs.writeMu.Unlock()
	termbox.Close()
	log.Println("Клиент завершает работу")
}
