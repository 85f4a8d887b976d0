package commands

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/iamwavecut/shopkeeper/internal/db"
)

func TestBanRequiresMention(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.router.Dispatch(context.Background(), groupMsg(testAdmin, "!ban"))
	if got := f.messenger.last(t).text; got != "Mencione o usuário que deseja banir!" {
		t.Fatalf("reply = %q", got)
	}
	if len(f.bans.records) != 0 || len(f.messenger.removed) != 0 {
		t.Fatalf("ban executed without a mention")
	}
}

func TestBanMentionedUser(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.router.Dispatch(context.Background(), groupMsg(testAdmin, "!ban @troll flood de links", "troll@s.whatsapp.net"))

	if len(f.bans.records) != 1 {
		t.Fatalf("bans = %d, want 1", len(f.bans.records))
	}
	record := f.bans.records[0]
	if record.UserID != "troll@s.whatsapp.net" || record.Reason != "flood de links" || record.BannedBy != testAdmin {
		t.Fatalf("unexpected record: %+v", record)
	}
	if len(f.messenger.removed) != 1 || f.messenger.removed[0] != testGroup+"/troll@s.whatsapp.net" {
		t.Fatalf("removed = %v", f.messenger.removed)
	}
	last := f.messenger.last(t)
	if last.text != "⛔ Usuário @troll foi banido!\nMotivo: flood de links" {
		t.Fatalf("reply = %q", last.text)
	}
	if len(last.mentions) != 1 || last.mentions[0] != "troll@s.whatsapp.net" {
		t.Fatalf("mentions = %v", last.mentions)
	}
}

func TestBanAsReply(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.router.Dispatch(context.Background(), groupMsg(testAdmin, "!ban", "troll"))
	if len(f.bans.records) != 1 || f.bans.records[0].UserID != "troll" {
		t.Fatalf("bare reply ban records = %+v", f.bans.records)
	}
	if got := f.bans.records[0].Reason; got != "Sem motivo especificado" {
		t.Fatalf("reason = %q", got)
	}

	f.router.Dispatch(context.Background(), groupMsg(testAdmin, "!ban golpe no grupo", "scammer"))
	if len(f.bans.records) != 2 || f.bans.records[1].Reason != "golpe no grupo" {
		t.Fatalf("reply ban with reason records = %+v", f.bans.records)
	}
	if len(f.messenger.removed) != 2 {
		t.Fatalf("removed = %v", f.messenger.removed)
	}
}

func TestBanDefaultReasonAndFailure(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.router.Dispatch(context.Background(), groupMsg(testAdmin, "!ban @troll", "troll"))
	if got := f.bans.records[0].Reason; got != "Sem motivo especificado" {
		t.Fatalf("reason = %q", got)
	}

	f.bans.err = errors.New("db down")
	f.router.Dispatch(context.Background(), groupMsg(testAdmin, "!ban @other", "other"))
	if got := f.messenger.last(t).text; got != "❌ Erro ao banir usuário!" {
		t.Fatalf("reply = %q", got)
	}
	if len(f.messenger.removed) != 1 {
		t.Fatalf("user removed although the ban was not stored")
	}
}

func TestBanIsAdminOnly(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.router.Dispatch(context.Background(), groupMsg(testUser, "!ban @troll", "troll"))
	if len(f.bans.records) != 0 {
		t.Fatalf("member could ban")
	}
}

func TestHelp(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.router.Dispatch(context.Background(), directMsg(testUser, "!help"))
	list := f.messenger.last(t).text
	for _, want := range []string{"!ban", "!cart", "!group", "!ping", "🛒 Vendas:", "🔧 Geral:"} {
		if !strings.Contains(list, want) {
			t.Fatalf("help misses %q:\n%s", want, list)
		}
	}

	f.router.Dispatch(context.Background(), directMsg(testUser, "!help cart"))
	detail := f.messenger.last(t).text
	if !strings.Contains(detail, "!cart <add/remove/list/clear/checkout>") {
		t.Fatalf("help cart = %q", detail)
	}
}

func TestPing(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.router.Dispatch(context.Background(), directMsg(testUser, "!ping"))
	texts := f.messenger.texts()
	if len(texts) != 2 || !strings.HasPrefix(texts[0], "🏓 Pong!") || !strings.HasPrefix(texts[1], "Latência:") {
		t.Fatalf("replies = %v", texts)
	}
}

func TestAdminIsOwnerOnly(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.router.Dispatch(context.Background(), groupMsg(testAdmin, "!admin stats"))
	if got := f.messenger.last(t).text; got != "⚠️ Este comando é apenas para o dono do bot." {
		t.Fatalf("reply = %q", got)
	}
}

func TestAdminUsage(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.router.Dispatch(context.Background(), directMsg(testOwner+"@s.whatsapp.net", "!admin"))
	if got := f.messenger.last(t).text; got != "Uso: !admin <stats/config/reset/broadcast/warnings> [parâmetros]" {
		t.Fatalf("reply = %q", got)
	}
}

func TestAdminStatsAndReset(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	owner := testOwner + "@s.whatsapp.net"

	f.router.Dispatch(context.Background(), directMsg(owner, "!admin stats"))
	if got := f.messenger.last(t).text; !strings.Contains(got, "Estatísticas") {
		t.Fatalf("stats reply = %q", got)
	}

	f.router.Dispatch(context.Background(), directMsg(owner, "!admin reset"))
	if f.ledger.resets != 1 {
		t.Fatalf("ledger resets = %d", f.ledger.resets)
	}

	f.router.Dispatch(context.Background(), directMsg(owner, "!admin config"))
	if got := f.messenger.last(t).text; !strings.Contains(got, "Máximo de avisos: 3") {
		t.Fatalf("config reply = %q", got)
	}
}

func TestAdminWarningsReadsMirror(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	owner := testOwner + "@s.whatsapp.net"

	f.router.Dispatch(ctx, directMsg(owner, "!admin warnings"))
	if got := f.messenger.last(t).text; got != "Mencione um usuário em um grupo para ver os avisos dele!" {
		t.Fatalf("direct reply = %q", got)
	}

	f.router.Dispatch(ctx, groupMsg(owner, "!admin warnings @user1", testUser))
	if got := f.messenger.last(t).text; got != "✅ @user1 não tem avisos." {
		t.Fatalf("clean reply = %q", got)
	}

	at := time.Date(2026, 3, 14, 10, 30, 0, 0, time.Local)
	if err := f.store.UpsertWarning(ctx, &db.Warning{UserID: testUser, GroupID: testGroup, Reason: "link", Count: 2, LastWarning: at}); err != nil {
		t.Fatalf("UpsertWarning() error = %v", err)
	}
	f.router.Dispatch(ctx, groupMsg(owner, "!admin warnings @user1", testUser))
	last := f.messenger.last(t)
	if last.text != "⚠️ @user1 tem 2/3 avisos.\nÚltimo motivo: link\nÚltimo aviso: 14/03/2026 10:30" {
		t.Fatalf("warning reply = %q", last.text)
	}
	if len(last.mentions) != 1 || last.mentions[0] != testUser {
		t.Fatalf("mentions = %v", last.mentions)
	}
}

func TestBroadcastContinuesOnFailure(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.messenger.groups = []string{"a", "b", "c"}
	f.messenger.failSend["b"] = true
	owner := testOwner + "@s.whatsapp.net"

	f.router.Dispatch(context.Background(), directMsg(owner, "!admin broadcast"))
	if got := f.messenger.last(t).text; got != "Forneça uma mensagem para transmitir!" {
		t.Fatalf("empty broadcast reply = %q", got)
	}

	f.router.Dispatch(context.Background(), directMsg(owner, "!admin broadcast Loja fechada amanhã"))
	var delivered []string
	for _, s := range f.messenger.sent {
		if strings.HasPrefix(s.text, "📢 *Comunicado Oficial*\n\nLoja fechada amanhã") {
			delivered = append(delivered, s.target)
		}
	}
	if strings.Join(delivered, ",") != "a,c" {
		t.Fatalf("delivered to %v, want a and c", delivered)
	}
	if got := f.messenger.last(t).text; got != "✅ Mensagem transmitida para todos os grupos!" {
		t.Fatalf("final reply = %q", got)
	}
}

func TestGroupCommand(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	f.router.Dispatch(ctx, groupMsg(testAdmin, "!group close"))
	if !f.messenger.closed[testGroup] || f.messenger.last(t).text != "🔒 Grupo fechado!" {
		t.Fatalf("close failed: %q", f.messenger.last(t).text)
	}
	f.router.Dispatch(ctx, groupMsg(testAdmin, "!group open"))
	if f.messenger.closed[testGroup] || f.messenger.last(t).text != "🔓 Grupo aberto!" {
		t.Fatalf("open failed: %q", f.messenger.last(t).text)
	}
	f.router.Dispatch(ctx, groupMsg(testAdmin, "!group link"))
	if got := f.messenger.last(t).text; !strings.HasSuffix(got, "https://t.me/joinchat/g1") {
		t.Fatalf("link reply = %q", got)
	}
	f.router.Dispatch(ctx, groupMsg(testAdmin, "!group dance"))
	if got := f.messenger.last(t).text; got != "❌ Ação inválida! Use: open, close, link ou revoke" {
		t.Fatalf("invalid action reply = %q", got)
	}
	f.router.Dispatch(ctx, directMsg(testAdmin, "!group open"))
	if got := f.messenger.last(t).text; got != "⚠️ Este comando só pode ser usado em grupos." {
		t.Fatalf("direct reply = %q", got)
	}
}

func TestShoppingFlow(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	f.router.Dispatch(ctx, groupMsg(testAdmin, "!product add Bolo 20 5 de chocolate | doces"))
	added := f.messenger.last(t).text
	id := strings.TrimSpace(added[strings.LastIndex(added, ":")+1:])
	if !strings.HasPrefix(added, "✅ Produto adicionado") || id == "" {
		t.Fatalf("add reply = %q", added)
	}

	f.router.Dispatch(ctx, groupMsg(testUser, "!product list"))
	if got := f.messenger.last(t).text; got != "⚠️ Este comando é apenas para administradores." {
		t.Fatalf("member product list reply = %q", got)
	}

	f.router.Dispatch(ctx, groupMsg(testUser, "!cart add "+id+" 2"))
	if got := f.messenger.last(t).text; !strings.Contains(got, "Bolo") {
		t.Fatalf("cart add reply = %q", got)
	}
	f.router.Dispatch(ctx, groupMsg(testUser, "!cart add "+id+" 9"))
	if got := f.messenger.last(t).text; !strings.Contains(got, "Estoque insuficiente") {
		t.Fatalf("over stock reply = %q", got)
	}
	f.router.Dispatch(ctx, groupMsg(testUser, "!cart list"))
	if got := f.messenger.last(t).text; !strings.Contains(got, "Quantidade: 2") {
		t.Fatalf("cart list reply = %q", got)
	}

	f.router.Dispatch(ctx, groupMsg(testUser, "!cart checkout"))
	if got := f.messenger.last(t).text; !strings.Contains(got, "MZN 49,00") {
		t.Fatalf("checkout reply = %q", got)
	}
	f.router.Dispatch(ctx, groupMsg(testUser, "!cart list"))
	if got := f.messenger.last(t).text; got != "🛒 Seu carrinho está vazio!" {
		t.Fatalf("cart after checkout = %q", got)
	}

	product, err := f.store.GetProduct(ctx, id)
	if err != nil || product.Stock != 3 {
		t.Fatalf("stock after checkout = %+v, %v", product, err)
	}
}

func TestCartUsage(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.router.Dispatch(context.Background(), directMsg(testUser, "!cart add"))
	if got := f.messenger.last(t).text; got != "Uso: !cart add <produto_id> [quantidade]" {
		t.Fatalf("reply = %q", got)
	}
}

func TestServiceAddRequiresAdmin(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.router.Dispatch(context.Background(), groupMsg(testUser, "!service add Corte 150 60"))
	if got := f.messenger.last(t).text; got != "⚠️ Este comando é apenas para administradores." {
		t.Fatalf("reply = %q", got)
	}

	f.router.Dispatch(context.Background(), groupMsg(testAdmin, "!service add Corte 150 60 | beleza"))
	if got := f.messenger.last(t).text; !strings.HasPrefix(got, "✅ Serviço adicionado") {
		t.Fatalf("reply = %q", got)
	}
	f.router.Dispatch(context.Background(), groupMsg(testUser, "!service list beleza"))
	if got := f.messenger.last(t).text; !strings.Contains(got, "Corte") {
		t.Fatalf("list reply = %q", got)
	}
	f.router.Dispatch(context.Background(), groupMsg(testUser, "!service schedule"))
	if got := f.messenger.last(t).text; got != "📅 Você não possui agendamentos." {
		t.Fatalf("schedule reply = %q", got)
	}
}
