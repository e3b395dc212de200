package app

// Command はtoolpunkバイナリの起動モードを表す。
type Command string

const (
	// CommandServe はAPIサーバー（アイデア生成・決済・プロフィール）を起動する。
	CommandServe Command = "serve"
	// CommandWorker は日次無料枠カウンタのクリーンアップを定期実行する。
	CommandWorker Command = "worker"
	// CommandMigrate は処理済み決済台帳のスキーマを適用する。DATABASE_URLが必須。
	CommandMigrate Command = "migrate"
	// CommandHealthcheck は稼働中のサーバーの /api/health を確認する。
	// シェルのないdistrolessイメージのHEALTHCHECK用。
	CommandHealthcheck Command = "healthcheck"
)

// commands はサブコマンド名からCommandへの対応表。
var commands = map[string]Command{
	string(CommandServe):       CommandServe,
	string(CommandWorker):      CommandWorker,
	string(CommandMigrate):     CommandMigrate,
	string(CommandHealthcheck): CommandHealthcheck,
}

// ParseCommand は最初の引数からサブコマンドを解析する。
// 引数なし、または未知のサブコマンドはserveとして扱う（コンテナのCMD省略時と同じ）。
// 2番目以降の引数は無視する。
func ParseCommand(args []string) Command {
	if len(args) == 0 {
		return CommandServe
	}
	if cmd, ok := commands[args[0]]; ok {
		return cmd
	}
	return CommandServe
}

// NeedsConfig は起動前に環境変数の設定（Appwrite・Razorpay等）の読み込みが必要かを返す。
// healthcheckはSERVER_PORTのみを参照する。
func (c Command) NeedsConfig() bool {
	return c != CommandHealthcheck
}
