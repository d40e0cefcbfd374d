package repl

// weird is printed when the shell is told to drop its jobs by a user
// signal.
const weird = `
                                        .--.  .--.
                                       /    \/    \
                                      | .-.  .-.   \
                                      |/_  |/_  |   \
                                      || ` + "`" + `\|| ` + "`" + `\|    ` + "`" + `----.
                                      |\0_/ \0_/    --,    \_
                    .--"""""-.       /              (` + "`" + ` \     ` + "`" + `-.
                   /          \-----'-.              \          \
                   \  () ()                         /` + "`" + `\          \
                   |                         .___.-'   |          \
                   \                        /` + "`" + ` \|      /           ;
                    ` + "`" + `-.___             ___.' .-.` + "`" + `.---.|             \
                       \| ` + "``" + `-..___,.-'` + "`" + `\| / /   /     |              ` + "`" + `\
                        ` + "`" + `      \|      ,` + "`" + `/ /   /   ,  /
                                ` + "`" + `      |\ /   /    |\/
    I feel weird...                   ,   .'` + "`" + `-;   '     \/
                            ,    |\-'  .'   ,   .-'` + "`" + `
                          .-|\--;` + "``" + ` .-'     |\.'
                         ( ` + "`" + `"'-.|\ (___,.--'` + "`" + `'
                          ` + "`" + `-.    ` + "`" + `"` + "`" + `          _.--'
                             ` + "`" + `.          _.-'` + "`" + `-.
                               ` + "`" + `''---''` + "``" + `        ` + "`" + `.
`
